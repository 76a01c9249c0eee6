package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/dataadmin/internal/audit"
)

// WithRequestMetadata adds IP and User-Agent to context for audit logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by middleware.TrustedRealIP
	ctx = audit.ContextWithIPAddress(ctx, ip)
	ctx = audit.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
