package handlers

import (
	"net/http"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
)

// CommandsHandler accepts command submissions and returns the moderation
// decision. Every submission, allowed or not, produces an audit record, so
// the handler always responds 200 for a decided command; only transport and
// validation failures use error status codes.
type CommandsHandler struct {
	service Service
}

// NewCommandsHandler creates a new command submission handler.
func NewCommandsHandler(service Service) *CommandsHandler {
	return &CommandsHandler{service: service}
}

// submitRequest is the body of POST /commands.
type submitRequest struct {
	CommandText string `json:"command_text"`
}

// ServeHTTP implements http.Handler for POST /commands.
func (h *CommandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Submit(r.Context(), user, req.CommandText)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
