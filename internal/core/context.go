package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "import_ip"
	ctxKeyFileName  contextKey = "import_file"
)

// ContextWithIPAddress records the client IP for import history.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithFileName records the source file name for import history.
func ContextWithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyFileName, name)
}

// IPAddressFromContext extracts the client IP, or "".
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// FileNameFromContext extracts the source file name, or "".
func FileNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyFileName).(string); ok {
		return v
	}
	return ""
}
