package handlers

import (
	"net/http"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
)

// MeHandler returns the authenticated caller's own account, including the
// live credit balance.
type MeHandler struct{}

// NewMeHandler creates a new me handler.
func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// ServeHTTP implements http.Handler for GET /me.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
