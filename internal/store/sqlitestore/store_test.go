package sqlitestore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalog/internal/bitacora"
	"github.com/JonMunkholm/catalog/internal/core"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestModel_CRUD(t *testing.T) {
	ctx := context.Background()
	m := openStore(t).Model("orders")

	created, err := m.Create(ctx, core.Record{"account": "U1", "qty": 10, "side": "BUY"})
	require.NoError(t, err)
	id, ok := created[core.IDField].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.EqualValues(t, 0, created[core.VersionField])

	found, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "U1", found["account"])
	assert.Equal(t, float64(10), found["qty"])

	updated, err := m.FindByIDAndUpdate(ctx, id, core.Record{"qty": 12, "note": nil}, core.UpdateOptions{New: true})
	require.NoError(t, err)
	assert.Equal(t, float64(12), updated["qty"])
	assert.Equal(t, "BUY", updated["side"], "unspecified fields are kept")
	assert.Contains(t, updated, "note")
	assert.Nil(t, updated["note"])

	old, err := m.FindByIDAndUpdate(ctx, id, core.Record{"qty": 13}, core.UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, float64(12), old["qty"], "pre-update document without New")

	deleted, err := m.FindByIDAndDelete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted[core.IDField])

	gone, err := m.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)

	again, err := m.FindByIDAndDelete(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, again)

	missing, err := m.FindByIDAndUpdate(ctx, id, core.Record{"qty": 1}, core.UpdateOptions{New: true})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestModel_FindOrderAndBounds(t *testing.T) {
	ctx := context.Background()
	m := openStore(t).Model("candles")

	for i := 1; i <= 5; i++ {
		_, err := m.Create(ctx, core.Record{"n": i})
		require.NoError(t, err)
	}

	all, err := m.Find(ctx, nil, core.FindOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, doc := range all {
		assert.Equal(t, float64(i+1), doc["n"])
	}

	page, err := m.Find(ctx, nil, core.FindOptions{Skip: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, float64(2), page[0]["n"])
	assert.Equal(t, float64(3), page[1]["n"])

	tail, err := m.Find(ctx, nil, core.FindOptions{Skip: 4})
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

func TestModel_FindFilters(t *testing.T) {
	ctx := context.Background()
	m := openStore(t).Model("positions")

	for _, doc := range []core.Record{
		{"account": "U1", "instrument_id": "A", "open": true},
		{"account": "U1", "instrument_id": "B", "open": false},
		{"account": "U2"},
		{"account": "U3", "instrument_id": nil, "meta": map[string]any{"k": "v"}},
	} {
		_, err := m.Create(ctx, doc)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter core.Record
		want   int
	}{
		{name: "single field", filter: core.Record{"account": "U1"}, want: 2},
		{name: "two fields", filter: core.Record{"account": "U1", "instrument_id": "B"}, want: 1},
		{name: "bool", filter: core.Record{"open": true}, want: 1},
		{name: "nil matches missing", filter: core.Record{"account": "U2", "instrument_id": nil}, want: 1},
		{name: "nil matches null", filter: core.Record{"account": "U3", "instrument_id": nil}, want: 1},
		{name: "nested value", filter: core.Record{"meta": map[string]any{"k": "v"}}, want: 1},
		{name: "no match", filter: core.Record{"account": "U9"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := m.Find(ctx, tt.filter, core.FindOptions{})
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}

	one, err := m.FindOne(ctx, core.Record{"account": "U9"})
	require.NoError(t, err)
	assert.Nil(t, one)
}

func TestModel_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Model("orders").Create(ctx, core.Record{"a": 1})
	require.NoError(t, err)

	docs, err := s.Model("executions").Find(ctx, nil, core.FindOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEnsureUnique(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.EnsureUnique(ctx, "dailypnls", []string{"account", "date"}))
	require.NoError(t, s.EnsureUnique(ctx, "dailypnls", []string{"account", "date"}), "idempotent")
	m := s.Model("dailypnls")

	_, err := m.Create(ctx, core.Record{"account": "U1", "date": "2024-01-02"})
	require.NoError(t, err)

	_, err = m.Create(ctx, core.Record{"account": "U1", "date": "2024-01-02"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, http.StatusConflict, core.StatusOf(err))

	other, err := m.Create(ctx, core.Record{"account": "U1", "date": "2024-01-03"})
	require.NoError(t, err)

	_, err = m.FindByIDAndUpdate(ctx, other[core.IDField].(string), core.Record{"date": "2024-01-02"}, core.UpdateOptions{New: true})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = s.Model("orders").Create(ctx, core.Record{"account": "U1", "date": "2024-01-02"})
	assert.NoError(t, err, "index is scoped to its collection")

	assert.Error(t, s.EnsureUnique(ctx, "bad name", []string{"a"}))
	assert.Error(t, s.EnsureUnique(ctx, "ok", []string{"a'b"}))
}

func TestPing(t *testing.T) {
	assert.NoError(t, openStore(t).Ping(context.Background()))
}

// Engine scenarios run end to end against the embedded store.

func newEngine(t *testing.T) *core.Handlers {
	t.Helper()
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.EnsureUnique(ctx, "instruments", []string{"ib_conid"}))

	h := core.NewHandlers()
	w := core.NewWrapper(core.WrapperConfig{
		DBServer: "Inversiones",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	m := s.Model("instruments")
	core.RegisterCRUD(h, core.Entity{Name: "Instruments"}, m, w, core.Options{
		UniqueCheck: core.Unique(m, core.KeyFields("ib_conid"), "ib_conid already exists"),
	})
	return h
}

func run(t *testing.T, h *core.Handlers, verb core.Verb, data core.Record, query map[string]string) bitacora.Response {
	t.Helper()
	resp, err := h.Dispatch(verb, "Instruments", core.NewRequest(context.Background(), data, query))
	require.NoError(t, err)
	return resp
}

func TestEngine_CreateThenConflict(t *testing.T) {
	h := newEngine(t)

	first := run(t, h, core.VerbCreate, core.Record{"ib_conid": 265598, "symbol": "AAPL"}, nil)
	require.True(t, first.Success)
	assert.Equal(t, http.StatusCreated, first.Status)
	assert.Equal(t, "Inversiones", first.DBServer)
	rec := first.Principal().DataRes.(core.Record)
	assert.NotEmpty(t, rec[core.ExternalIDField])
	assert.NotContains(t, rec, core.IDField)
	assert.NotContains(t, rec, core.VersionField)

	second := run(t, h, core.VerbCreate, core.Record{"ib_conid": 265598}, nil)
	assert.False(t, second.Success)
	assert.Equal(t, http.StatusConflict, second.Status)
	assert.Contains(t, second.MessageDEV, "ib_conid already exists")
}

func TestEngine_ReadBounds(t *testing.T) {
	h := newEngine(t)
	for i := 1; i <= 5; i++ {
		require.True(t, run(t, h, core.VerbCreate, core.Record{"ib_conid": i}, nil).Success)
	}

	resp := run(t, h, core.VerbRead, nil, map[string]string{"$top": "2", "$skip": "1"})

	require.True(t, resp.Success)
	list := resp.Principal().DataRes.([]core.Record)
	require.Len(t, list, 2)
	assert.Equal(t, float64(2), list[0]["ib_conid"])
	assert.Equal(t, float64(3), list[1]["ib_conid"])
}

func TestEngine_UpdateAndDeleteErrors(t *testing.T) {
	h := newEngine(t)

	assert.Equal(t, http.StatusBadRequest, run(t, h, core.VerbUpdate, core.Record{"symbol": "X"}, nil).Status)
	assert.Equal(t, http.StatusNotFound, run(t, h, core.VerbUpdate, core.Record{"ID": "0190-none", "symbol": "X"}, nil).Status)

	created := run(t, h, core.VerbCreate, core.Record{"ib_conid": 7}, nil).Principal().DataRes.(core.Record)
	id := created[core.ExternalIDField]

	first := run(t, h, core.VerbDelete, core.Record{"ID": id}, nil)
	assert.True(t, first.Success)
	assert.Equal(t, core.Record{"deleted": true, "ID": id}, first.Principal().DataRes)

	second := run(t, h, core.VerbDelete, core.Record{"ID": id}, nil)
	assert.False(t, second.Success)
	assert.Equal(t, http.StatusNotFound, second.Status)
}

func TestEngine_StorageIndexCatchesRace(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.EnsureUnique(ctx, "instruments", []string{"ib_conid"}))

	h := core.NewHandlers()
	w := core.NewWrapper(core.WrapperConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	// No guard: the unique index alone must reject the duplicate.
	core.RegisterCRUD(h, core.Entity{Name: "Instruments"}, s.Model("instruments"), w, core.Options{})

	require.True(t, run(t, h, core.VerbCreate, core.Record{"ib_conid": 1}, nil).Success)
	dup := run(t, h, core.VerbCreate, core.Record{"ib_conid": 1}, nil)
	assert.Equal(t, http.StatusConflict, dup.Status)
}
