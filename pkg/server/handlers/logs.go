package handlers

import (
	"net/http"

	"mercator-hq/saturn/pkg/gate"
	"mercator-hq/saturn/pkg/security/auth"
)

// LogsHandler serves the audit log query endpoint. Filters arrive as query
// parameters; unrecognized filter values fall back to their defaults rather
// than erroring, and non-admin callers always receive only their own
// records.
type LogsHandler struct {
	service Service
}

// NewLogsHandler creates a new audit log handler.
func NewLogsHandler(service Service) *LogsHandler {
	return &LogsHandler{service: service}
}

// ServeHTTP implements http.Handler for GET /logs.
func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	actor, ok := auth.GetUser(r.Context())
	if !ok {
		writeError(w, r, gate.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	opts := gate.LogOptions{
		Scope:     gate.LogScope(q.Get("role_filter")),
		TargetKey: q.Get("target_api_key"),
		Status:    gate.StatusFilter(q.Get("status_filter")),
		Sort:      gate.SortOrder(q.Get("sort_order")),
	}

	records, err := h.service.Logs(r.Context(), actor, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}
