package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFields(t *testing.T) {
	derive := KeyFields("account", "date")

	tests := []struct {
		name string
		data Record
		want Record
	}{
		{name: "all present", data: Record{"account": "U1", "date": "2024-01-02", "pnl": 3}, want: Record{"account": "U1", "date": "2024-01-02"}},
		{name: "partial key-set", data: Record{"account": "U1"}, want: Record{"account": "U1", "date": nil}},
		{name: "none present", data: Record{"pnl": 3}, want: nil},
		{name: "explicit nulls", data: Record{"account": nil}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(context.Background(), tt.data, nil)
			assert.Equal(t, tt.want, derive(req))
		})
	}
}

func TestUnique(t *testing.T) {
	ctx := context.Background()
	model := newMemModel()
	_, err := model.Create(ctx, Record{"ib_conid": 265598})
	require.NoError(t, err)

	guard := Unique(model, KeyFields("ib_conid"), "ib_conid already exists")

	t.Run("existing key rejects with 409", func(t *testing.T) {
		err := guard(NewRequest(ctx, Record{"ib_conid": 265598}, nil))
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, StatusOf(err))
		assert.Equal(t, "ib_conid already exists", err.Error())
	})

	t.Run("new key passes", func(t *testing.T) {
		assert.NoError(t, guard(NewRequest(ctx, Record{"ib_conid": 1}, nil)))
	})

	t.Run("empty key skips lookup", func(t *testing.T) {
		model.failErr = errStorageDown
		defer func() { model.failErr = nil }()
		assert.NoError(t, guard(NewRequest(ctx, Record{"symbol": "AAPL"}, nil)))
	})

	t.Run("nil predicate skips", func(t *testing.T) {
		assert.NoError(t, Unique(model, nil, "x")(NewRequest(ctx, Record{"ib_conid": 265598}, nil)))
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		model.failErr = errStorageDown
		defer func() { model.failErr = nil }()
		err := guard(NewRequest(ctx, Record{"ib_conid": 7}, nil))
		assert.ErrorIs(t, err, errStorageDown)
		assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	})
}
