// Package authcore is an embeddable authentication and session core:
// credential verification with account lockout, opaque token issuance,
// per-client session caching, and role/permission resolution.
//
// The Manager is the single entry point. Hosts inject a CredentialStore
// (see gormstore for the reference implementation), an optional session
// cache (in-process by default, Redis-backed for multi-process hosts), and
// configuration:
//
//	mgr, err := authcore.New().
//		WithConfig(cfg).
//		WithStore(store).
//		WithLogger(logger).
//		Build()
//
// Client identity, IP, and user agent ride on the request context via
// WithClientID, WithClientIP, and WithUserAgent. Session validation runs a
// fixed waterfall: context-bound snapshot, cache partition, persisted
// session token, remember token, anonymous.
package authcore
