package core

import (
	"fmt"
	"net/http"
)

// Hook runs before a write. A non-nil error aborts the operation.
type Hook func(req Request) error

// KeyFunc derives the uniqueness filter from a request. A nil or empty result
// skips the check.
type KeyFunc func(req Request) Record

// Unique returns a hook that rejects the request with 409 and msg when a
// record matching the derived key already exists in model.
//
// The check is not atomic with the write that follows it; the storage-level
// unique index decides concurrent races.
func Unique(model Model, derive KeyFunc, msg string) Hook {
	return func(req Request) error {
		if derive == nil {
			return nil
		}
		key := derive(req)
		if len(key) == 0 {
			return nil
		}

		found, err := model.FindOne(req.Context(), key)
		if err != nil {
			return fmt.Errorf("uniqueness lookup: %w", err)
		}
		if found != nil {
			return req.Reject(http.StatusConflict, msg)
		}
		return nil
	}
}

// KeyFields derives the key from the named payload fields. Returns nil when
// none of them carries a value; absent fields are keyed as nil so they match
// missing or null values in storage.
func KeyFields(fields ...string) KeyFunc {
	return func(req Request) Record {
		data := req.Data()
		key := make(Record, len(fields))
		present := false
		for _, f := range fields {
			v, ok := data[f]
			if ok && v != nil {
				present = true
			}
			key[f] = v
		}
		if !present {
			return nil
		}
		return key
	}
}
