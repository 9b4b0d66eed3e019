package handlers

import (
	"net/http"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
)

// RulesHandler lists rules for any authenticated caller and appends rules
// for admins.
type RulesHandler struct {
	service Service
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(service Service) *RulesHandler {
	return &RulesHandler{service: service}
}

// createRuleRequest is the body of POST /rules.
type createRuleRequest struct {
	Pattern string `json:"pattern"`
	Action  string `json:"action"`
}

// ServeHTTP implements http.Handler for GET and POST /rules.
func (h *RulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RulesHandler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.Rules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

func (h *RulesHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	var req createRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rule, err := h.service.CreateRule(r.Context(), user, req.Pattern, gate.RuleAction(req.Action))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}
