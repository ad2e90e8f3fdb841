package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/leadimport/internal/core"
)

// WithRequestMetadata adds the client IP to ctx for import history.
// RemoteAddr has already been rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithIPAddress(ctx, r.RemoteAddr)
}
