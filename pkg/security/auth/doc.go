// Package auth implements API key authentication for the gateway.
//
// # Overview
//
// Every gateway request carries an opaque pre-shared API key. The Resolver
// maps a presented key to the user account holding it; the HTTP middleware
// extracts the key from configured sources (the X-API-Key header, with an
// Authorization Bearer fallback), resolves it, and stores the resulting
// user in the request context for handlers.
//
// Keys are generated randomly at user creation, never derived from the
// username or role, and never rotated here. An unknown key is always
// Unauthorized; role checks (Forbidden) happen in the gate service, not in
// this package.
//
// # Usage
//
//	resolver := auth.NewResolver(store, nil)
//	mw := auth.NewMiddleware(resolver, auth.DefaultKeySources())
//	handler = mw.Handle(handler)
//
// Handlers retrieve the authenticated user with:
//
//	user, ok := auth.GetUser(r.Context())
package auth
