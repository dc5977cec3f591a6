package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type hexID string

func (h hexID) Hex() string { return string(h) }

type stringerID struct{ v string }

func (s stringerID) String() string { return s.v }

func TestToExternal(t *testing.T) {
	tests := []struct {
		name string
		in   Record
		want Record
	}{
		{
			name: "renames _id and drops __v",
			in:   Record{IDField: "abc", VersionField: 3, "symbol": "AAPL"},
			want: Record{ExternalIDField: "abc", "symbol": "AAPL"},
		},
		{
			name: "hex identifier",
			in:   Record{IDField: hexID("65f0c0ffee"), "name": "x"},
			want: Record{ExternalIDField: "65f0c0ffee", "name": "x"},
		},
		{
			name: "stringer identifier",
			in:   Record{IDField: stringerID{v: "0190-uuid"}},
			want: Record{ExternalIDField: "0190-uuid"},
		},
		{
			name: "numeric identifier",
			in:   Record{IDField: 42},
			want: Record{ExternalIDField: "42"},
		},
		{
			name: "no identifier",
			in:   Record{"a": 1},
			want: Record{"a": 1},
		},
		{
			name: "nil record",
			in:   nil,
			want: Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToExternal(tt.in))
		})
	}
}

func TestToInternal(t *testing.T) {
	in := Record{ExternalIDField: "abc", "account": "U1", "nested": map[string]any{"k": 1}}

	got := ToInternal(in)

	assert.Equal(t, Record{"account": "U1", "nested": map[string]any{"k": 1}}, got)
	assert.Contains(t, in, ExternalIDField, "input must not be mutated")
}

func TestExternalID(t *testing.T) {
	assert.Equal(t, "", ExternalID(Record{}))
	assert.Equal(t, "", ExternalID(Record{ExternalIDField: nil}))
	assert.Equal(t, "abc", ExternalID(Record{ExternalIDField: "abc"}))
	assert.Equal(t, "7", ExternalID(Record{ExternalIDField: 7}))
}
