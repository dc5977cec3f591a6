package bitacora

import "reflect"

// Kind is the payload shape reported by Classify.
type Kind int

const (
	KindNone Kind = iota
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "none"
	}
}

// Classify reports whether v is an ordered sequence, a structured record, or
// neither. Pointers and interfaces are followed; nil is KindNone.
func Classify(v any) Kind {
	kind, _ := inspect(v)
	return kind
}

// Count returns the number of payload items in v: the length of a list, 1 for
// a record, 0 otherwise.
func Count(v any) int {
	kind, rv := inspect(v)
	switch kind {
	case KindList:
		return rv.Len()
	case KindRecord:
		return 1
	default:
		return 0
	}
}

func inspect(v any) (Kind, reflect.Value) {
	if v == nil {
		return KindNone, reflect.Value{}
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return KindNone, rv
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return KindList, rv
	case reflect.Map:
		if rv.IsNil() {
			return KindNone, rv
		}
		return KindRecord, rv
	case reflect.Struct:
		return KindRecord, rv
	default:
		return KindNone, rv
	}
}
