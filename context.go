package authcore

import (
	"context"

	"github.com/webstack/authcore/session"
)

type clientIDContextKey struct{}
type clientIPContextKey struct{}
type userAgentContextKey struct{}
type sessionContextKey struct{}

// WithClientID attaches the caller's client identity to ctx. The manager
// uses it to select the session cache partition; callers without one share
// the default partition.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

// WithClientIP attaches the caller's IP address to ctx for audit events and
// login logs.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit events
// and login logs.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithSession binds an already-validated snapshot to ctx. CheckSession
// returns it directly, letting hosts validate once per request and reuse
// the result downstream.
func WithSession(ctx context.Context, snap session.Snapshot) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, snap)
}

// SessionFromContext returns the snapshot bound with WithSession, if any.
func SessionFromContext(ctx context.Context) (session.Snapshot, bool) {
	if ctx == nil {
		return session.Snapshot{}, false
	}
	snap, ok := ctx.Value(sessionContextKey{}).(session.Snapshot)
	return snap, ok
}

func clientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return session.DefaultClientID
	}
	clientID, _ := ctx.Value(clientIDContextKey{}).(string)
	if clientID == "" {
		return session.DefaultClientID
	}
	return clientID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
