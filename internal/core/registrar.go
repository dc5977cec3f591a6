package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/bitacora"
)

// Handler serves one verb for one entity.
type Handler func(req Request) bitacora.Response

// Dispatcher accepts handler registrations keyed by verb and entity name.
type Dispatcher interface {
	On(verb Verb, entity string, h Handler)
}

// Options customizes RegisterCRUD. Nil hooks are skipped.
type Options struct {
	UniqueCheck  Hook // before CREATE, after BeforeCreate
	BeforeCreate Hook
	BeforeUpdate Hook
}

var processNouns = map[Verb]string{
	VerbRead:   "Read",
	VerbCreate: "Creation",
	VerbUpdate: "Update",
	VerbDelete: "Deletion",
}

// RegisterCRUD installs READ, CREATE, UPDATE and DELETE handlers for entity
// on d, each running through w.
func RegisterCRUD(d Dispatcher, entity Entity, model Model, w *Wrapper, opts Options) {
	c := &crud{entity: entity.Name, model: model, opts: opts}

	ops := map[Verb]HandlerFactory{
		VerbRead:   c.read,
		VerbCreate: c.create,
		VerbUpdate: c.update,
		VerbDelete: c.remove,
	}

	for _, verb := range Verbs {
		verb := verb // per-iteration copy; go directive is < 1.22
		factory := ops[verb]
		d.On(verb, entity.Name, func(req Request) bitacora.Response {
			return w.Wrap(req.Context(), Op{
				Request: req,
				Method:  verb,
				API:     fmt.Sprintf("%s %s", verb, entity.Name),
				Process: fmt.Sprintf("%s of %s", processNouns[verb], entity.Name),
				Entity:  entity.Name,
				Handler: factory(req),
			})
		})
	}
}

// HandlerFactory binds a request to the work of one verb.
type HandlerFactory func(req Request) HandlerFunc

type crud struct {
	entity string
	model  Model
	opts   Options
}

func (c *crud) read(req Request) HandlerFunc {
	return func(ctx context.Context) (any, error) {
		if id := ExternalID(req.Data()); id != "" {
			doc, err := c.model.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				return []Record{}, nil
			}
			return []Record{ToExternal(doc)}, nil
		}

		bounds := ReadQueryBounds(req)
		docs, err := c.model.Find(ctx, nil, FindOptions{Skip: bounds.Skip, Limit: bounds.Top})
		if err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(docs))
		for _, doc := range docs {
			out = append(out, ToExternal(doc))
		}
		return out, nil
	}
}

func (c *crud) create(req Request) HandlerFunc {
	return func(ctx context.Context) (any, error) {
		if err := runHook(c.opts.BeforeCreate, req); err != nil {
			return nil, err
		}
		if err := runHook(c.opts.UniqueCheck, req); err != nil {
			return nil, err
		}

		doc, err := c.model.Create(ctx, ToInternal(req.Data()))
		if err != nil {
			return nil, err
		}
		return ToExternal(doc), nil
	}
}

func (c *crud) update(req Request) HandlerFunc {
	return func(ctx context.Context) (any, error) {
		id := ExternalID(req.Data())
		if id == "" {
			return nil, Validation("ID is required")
		}
		if err := runHook(c.opts.BeforeUpdate, req); err != nil {
			return nil, err
		}

		doc, err := c.model.FindByIDAndUpdate(ctx, id, ToInternal(req.Data()), UpdateOptions{New: true, Validate: true})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, NotFound(fmt.Sprintf("%s %s not found", c.entity, id))
		}
		return ToExternal(doc), nil
	}
}

func (c *crud) remove(req Request) HandlerFunc {
	return func(ctx context.Context) (any, error) {
		id := ExternalID(req.Data())
		if id == "" {
			return nil, Validation("ID is required")
		}

		doc, err := c.model.FindByIDAndDelete(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, NotFound(fmt.Sprintf("%s %s not found", c.entity, id))
		}
		return Record{"deleted": true, ExternalIDField: id}, nil
	}
}

func runHook(h Hook, req Request) error {
	if h == nil {
		return nil
	}
	return h(req)
}
