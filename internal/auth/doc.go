// Package auth provides authentication plumbing for helmgate's API surface.
//
// # Authentication
//
// API clients (the helmgate-admin CLI and anything scripted against /api)
// authenticate with JWT bearer tokens signed HS256 with the configured
// jwt_secret. The "sub" claim carries the principal identifier.
//
// The browser console does not use this package's middleware; it uses
// cookie sessions managed by the webconsole package. Both paths funnel
// through the same roster kernel authorization, so a blocked or deleted
// roster record locks out both surfaces on the next request.
//
// # Session propagation
//
// After authorization, the roster session (principal + role + record) is
// attached to the request context:
//
//	sess := auth.FromContext(r.Context())
//	if sess.IsMainAdmin() { ... }
package auth
