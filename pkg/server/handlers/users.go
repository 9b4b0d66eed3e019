package handlers

import (
	"net/http"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
)

// UsersHandler serves the admin user-management endpoints:
//
//	POST   /users/generate  provision an account with a fresh API key
//	GET    /users/search    look up an account by API key
//	PUT    /users/update    replace username and credit balance
//	DELETE /users/delete    remove an account and its audit records
//
// Role checks happen in the service; the handler only shapes transport.
type UsersHandler struct {
	service Service
}

// NewUsersHandler creates a new user management handler.
func NewUsersHandler(service Service) *UsersHandler {
	return &UsersHandler{service: service}
}

// generateUserRequest is the body of POST /users/generate.
type generateUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Credits  int    `json:"credits"`
}

// updateUserRequest is the body of PUT /users/update.
type updateUserRequest struct {
	Key      string `json:"api_key"`
	Username string `json:"username"`
	Credits  int    `json:"credits"`
}

// deleteUserRequest is the body of DELETE /users/delete.
type deleteUserRequest struct {
	Key string `json:"api_key"`
}

// Generate handles POST /users/generate.
func (h *UsersHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	var req generateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), actor, req.Username, gate.Role(req.Role), req.Credits)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Search handles GET /users/search?api_key=...
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	targetKey := r.URL.Query().Get("api_key")
	if targetKey == "" {
		writeError(w, r, gate.NewValidationError("api_key", "must not be empty", nil))
		return
	}

	user, err := h.service.LookupUser(r.Context(), actor, targetKey)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Update handles PUT /users/update.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actor, req.Key, req.Username, req.Credits)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/delete.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	var req deleteUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor, req.Key); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
