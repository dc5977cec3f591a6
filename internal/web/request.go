package web

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/catalog/internal/core"
)

// Media types accepted for msgpack bodies and responses.
const (
	mediaMsgpack  = "application/msgpack"
	mediaXMsgpack = "application/x-msgpack"
)

// decodeRequest builds the operation request from r: the body object as data,
// the first value of each query parameter as query, and the {id} path segment
// (or an ID query parameter) as the external ID.
func decodeRequest(r *http.Request) (core.Request, error) {
	data, err := decodeBody(r)
	if err != nil {
		return nil, err
	}

	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	if id := chi.URLParam(r, "id"); id != "" {
		data[core.ExternalIDField] = id
	} else if id := query[core.ExternalIDField]; id != "" {
		if _, ok := data[core.ExternalIDField]; !ok {
			data[core.ExternalIDField] = id
		}
	}

	ctx := WithRequestMetadata(r.Context(), r)
	return core.NewRequest(ctx, data, query), nil
}

// decodeBody reads a JSON or msgpack object. An empty body yields an empty record.
func decodeBody(r *http.Request) (core.Record, error) {
	data := core.Record{}
	if r.Body == nil || r.Body == http.NoBody {
		return data, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data, nil
	}

	var v any
	if isMsgpack(r.Header.Get("Content-Type")) {
		err = msgpack.Unmarshal(raw, &v)
	} else {
		err = json.Unmarshal(raw, &v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBodyMalformed, err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errBodyNotObject
	}
	return core.Record(obj), nil
}

// wantsMsgpack reports whether the client asked for a msgpack response.
func wantsMsgpack(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isMsgpack(part) {
			return true
		}
	}
	return false
}

func isMsgpack(header string) bool {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(header))
	if err != nil {
		return false
	}
	return mt == mediaMsgpack || mt == mediaXMsgpack
}

// writeEnvelope writes v with the given status, as msgpack when the client
// asked for it and JSON otherwise.
func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsMsgpack(r) {
		writeJSONStatus(w, status, v)
		return
	}

	body, err := msgpack.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode response: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", mediaMsgpack)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("msgpack write error", "error", err)
	}
}
