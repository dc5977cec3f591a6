package core

import (
	"context"
	"fmt"
)

// Schema holds the per-entity validation rules applied at the storage boundary.
type Schema struct {
	Required []string
}

// Validate checks doc against the schema. A full document must carry every
// required field; a partial one (an update) may omit them but must not clear them.
func (s Schema) Validate(doc Record, partial bool) error {
	for _, field := range s.Required {
		v, present := doc[field]
		if partial && !present {
			continue
		}
		if !present || isEmptyValue(v) {
			return Validation(fmt.Sprintf("%s is required", field))
		}
	}
	return nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// validatingModel runs schema validation before writes reach the wrapped model.
type validatingModel struct {
	Model
	schema Schema
}

// WithSchema returns m with schema validation on Create, and on
// FindByIDAndUpdate when the update asks for it. A schema with no rules
// returns m unchanged.
func WithSchema(m Model, schema Schema) Model {
	if len(schema.Required) == 0 {
		return m
	}
	return &validatingModel{Model: m, schema: schema}
}

func (v *validatingModel) Create(ctx context.Context, doc Record) (Record, error) {
	if err := v.schema.Validate(doc, false); err != nil {
		return nil, err
	}
	return v.Model.Create(ctx, doc)
}

func (v *validatingModel) FindByIDAndUpdate(ctx context.Context, id string, set Record, opts UpdateOptions) (Record, error) {
	if opts.Validate {
		if err := v.schema.Validate(set, true); err != nil {
			return nil, err
		}
	}
	return v.Model.FindByIDAndUpdate(ctx, id, set, opts)
}
