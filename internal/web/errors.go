package web

// errors.go covers failures that happen before an operation is dispatched:
// unknown entities, unreadable bodies, unsupported verbs. Failures inside an
// operation are reported through the envelope instead.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// ErrorResponse represents the JSON structure for non-envelope error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var (
	errBodyNotObject = errors.New("request body must be an object")
	errBodyMalformed = errors.New("request body is malformed")
)

// respondError logs err with request context and writes a JSON error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	logger := logging.FromContext(r.Context())
	logger.Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
	)

	writeJSONStatus(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// classifyError maps pre-dispatch failures to an HTTP status and a stable code.
func classifyError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE"
	case errors.Is(err, errBodyNotObject), errors.Is(err, errBodyMalformed):
		return http.StatusBadRequest, "BAD_BODY"
	case errors.Is(err, core.ErrUnknownEntity):
		return http.StatusNotFound, "UNKNOWN_ENTITY"
	case errors.Is(err, core.ErrUnsupportedVerb):
		return http.StatusMethodNotAllowed, "UNSUPPORTED_VERB"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
