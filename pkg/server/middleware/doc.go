// Package middleware provides HTTP middleware for the Saturn gateway.
//
// The chain, outermost first: recovery, logging, request ID, metrics, CORS,
// timeout. API key authentication is a separate middleware in
// pkg/security/auth and wraps only the authenticated routes.
package middleware
