package audit

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
	ctxKeySession   contextKey = "audit_session"
)

// ContextWithIPAddress adds IP address to context for audit logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent adds User-Agent to context for audit logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// ContextWithSession adds the browser session id to context.
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySession, id)
}

// IPAddressFromContext extracts IP address from context.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext extracts User-Agent from context.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// SessionFromContext extracts the session id from context.
func SessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySession).(string); ok {
		return v
	}
	return ""
}
