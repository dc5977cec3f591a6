package core

import "fmt"

// ToExternal converts a stored document to the external representation: the
// storage identifier becomes ID in canonical string form and the version
// field is dropped. Every other field passes through.
func ToExternal(doc Record) Record {
	out := make(Record, len(doc))
	for k, v := range doc {
		if k == IDField || k == VersionField {
			continue
		}
		out[k] = v
	}
	if id, ok := doc[IDField]; ok && id != nil {
		out[ExternalIDField] = CanonicalID(id)
	}
	return out
}

// ToInternal converts an external record to the form written to storage: ID is
// removed, every other field passes through.
func ToInternal(data Record) Record {
	out := make(Record, len(data))
	for k, v := range data {
		if k == ExternalIDField {
			continue
		}
		out[k] = v
	}
	return out
}

// CanonicalID renders a storage identifier as a string. ObjectID-like values
// use their hex form.
func CanonicalID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case interface{ Hex() string }:
		return v.Hex()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ExternalID returns the external identifier carried by data, or "" when the
// request has none.
func ExternalID(data Record) string {
	v, ok := data[ExternalIDField]
	if !ok {
		return ""
	}
	return CanonicalID(v)
}
