package core

import (
	"context"
	"strconv"
	"strings"
)

// Query keys recognized as scan bounds.
const (
	QueryTop  = "$top"
	QuerySkip = "$skip"
)

// Bounds are the scan limits read from a request.
type Bounds struct {
	Top  int
	Skip int
}

// ReadQueryBounds parses $top and $skip from the request query. Missing,
// malformed or negative values read as 0.
func ReadQueryBounds(req Request) Bounds {
	q := req.Query()
	return Bounds{
		Top:  parseBound(q[QueryTop]),
		Skip: parseBound(q[QuerySkip]),
	}
}

func parseBound(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// simpleRequest is an in-process Request used by the CLI and tests.
type simpleRequest struct {
	ctx   context.Context
	data  Record
	query map[string]string
}

// NewRequest builds a Request from a payload and query map. Nil arguments are
// replaced by empty values.
func NewRequest(ctx context.Context, data Record, query map[string]string) Request {
	if ctx == nil {
		ctx = context.Background()
	}
	if data == nil {
		data = Record{}
	}
	if query == nil {
		query = map[string]string{}
	}
	return &simpleRequest{ctx: ctx, data: data, query: query}
}

func (r *simpleRequest) Context() context.Context { return r.ctx }
func (r *simpleRequest) Data() Record               { return r.data }
func (r *simpleRequest) Query() map[string]string   { return r.query }

func (r *simpleRequest) Reject(status int, message string) error {
	return Reject(status, message)
}

// requestPayload returns what the ledger records as the request payload: the
// data, or the query parameters when there is no data.
func requestPayload(req Request) any {
	if data := req.Data(); len(data) > 0 {
		return data
	}
	if q := req.Query(); len(q) > 0 {
		out := make(Record, len(q))
		for k, v := range q {
			out[k] = v
		}
		return out
	}
	return Record{}
}
