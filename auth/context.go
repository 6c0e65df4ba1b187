package auth

import "context"

type contextKey int

const clientIPKey contextKey = iota

// WithClientIP attaches the caller's IP for audit events. The HTTP layer
// sets this; the service only reads it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the attached IP, or "" when none was set.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
