package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	s := Schema{Required: []string{"name"}}

	tests := []struct {
		name    string
		doc     Record
		partial bool
		wantErr bool
	}{
		{name: "full document with field", doc: Record{"name": "ds"}},
		{name: "full document missing field", doc: Record{"rows": 3}, wantErr: true},
		{name: "full document empty string", doc: Record{"name": ""}, wantErr: true},
		{name: "partial omits field", doc: Record{"rows": 3}, partial: true},
		{name: "partial clears field", doc: Record{"name": nil}, partial: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.doc, tt.partial)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWithSchema(t *testing.T) {
	ctx := context.Background()
	base := newMemModel()

	assert.Same(t, Model(base), WithSchema(base, Schema{}), "empty schema returns the model unchanged")

	m := WithSchema(base, Schema{Required: []string{"name"}})

	_, err := m.Create(ctx, Record{"rows": 1})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, base.docs, "invalid document must not be written")

	doc, err := m.Create(ctx, Record{"name": "ds"})
	require.NoError(t, err)
	id := doc[IDField].(string)

	_, err = m.FindByIDAndUpdate(ctx, id, Record{"name": ""}, UpdateOptions{New: true, Validate: true})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := m.FindByIDAndUpdate(ctx, id, Record{"name": ""}, UpdateOptions{New: true})
	require.NoError(t, err)
	assert.Equal(t, "", updated["name"], "validation only runs when requested")
}
