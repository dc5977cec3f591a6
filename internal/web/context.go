package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalog/internal/core"
)

// Headers that label the envelope's session and logged user.
const (
	HeaderSession = "X-Session-ID"
	HeaderUser    = "X-User"
)

// WithRequestMetadata adds the client IP, session and user labels to context.
// The session falls back to the request ID when the client sends none.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))

	session := strings.TrimSpace(r.Header.Get(HeaderSession))
	if session == "" {
		session = middleware.GetReqID(ctx)
	}
	if session != "" {
		ctx = core.ContextWithSession(ctx, session)
	}

	if user := strings.TrimSpace(r.Header.Get(HeaderUser)); user != "" {
		ctx = core.ContextWithUser(ctx, user)
	}
	return ctx
}

// clientIP strips the port from RemoteAddr, which TrustedRealIP has already resolved.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
