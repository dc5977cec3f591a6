package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "envelope_ip"
	ctxKeySession   contextKey = "envelope_session"
	ctxKeyUser      contextKey = "envelope_user"
)

// ContextWithIPAddress adds the client IP address to context for failure logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithSession adds the session label reported in the envelope.
func ContextWithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, ctxKeySession, session)
}

// ContextWithUser adds the logged-user label reported in the envelope.
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetSessionFromContext extracts the session label from context.
func GetSessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySession).(string); ok {
		return v
	}
	return ""
}

// GetUserFromContext extracts the logged-user label from context.
func GetUserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUser).(string); ok {
		return v
	}
	return ""
}
