// Package handlers contains the HTTP handlers for the Saturn gateway API.
//
// Handlers translate between HTTP transport and the moderation core: they
// decode requests, pull the authenticated user from the request context,
// call the service, and map service errors onto status codes with a uniform
// JSON error envelope. All authorization decisions live in the service.
package handlers
