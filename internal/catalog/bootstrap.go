package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/catalog/internal/core"
)

// Timestamp fields maintained for entities with timestamps enabled.
const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

var now = func() time.Time { return time.Now().UTC() }

// Bootstrap registers every definition, creates its storage unique index and
// installs its CRUD handlers on d.
func Bootstrap(ctx context.Context, d core.Dispatcher, store core.Store, w *core.Wrapper, defs []core.EntityDefinition) error {
	for _, def := range defs {
		if _, exists := core.Get(def.Entity.Name); exists {
			return fmt.Errorf("entity already registered: %s", def.Entity.Name)
		}
		core.Register(def)
		def, _ = core.Get(def.Entity.Name)

		if err := store.EnsureUnique(ctx, def.Collection, def.Unique); err != nil {
			return fmt.Errorf("%s: %w", def.Entity.Name, err)
		}

		model := core.WithSchema(store.Model(def.Collection), core.Schema{Required: def.Required})
		core.RegisterCRUD(d, def.Entity, model, w, Options(def, model))
	}
	return nil
}

// Options builds the registrar hooks for def.
func Options(def core.EntityDefinition, model core.Model) core.Options {
	var opts core.Options
	if len(def.Unique) > 0 {
		msg := def.ConflictMessage
		if msg == "" {
			msg = "Duplicate " + strings.TrimSuffix(def.Entity.Name, "s")
		}
		opts.UniqueCheck = core.Unique(model, core.KeyFields(def.Unique...), msg)
	}
	if def.Timestamps {
		opts.BeforeCreate = stampCreate
		opts.BeforeUpdate = stampUpdate
	}
	return opts
}

func stampCreate(req core.Request) error {
	t := now()
	data := req.Data()
	data[CreatedAtField] = t
	data[UpdatedAtField] = t
	return nil
}

func stampUpdate(req core.Request) error {
	data := req.Data()
	delete(data, CreatedAtField)
	data[UpdatedAtField] = now()
	return nil
}
