package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/saturn/pkg/gate"
)

// Service is the interface for the moderation core consumed by the HTTP
// handlers.
type Service interface {
	Submit(ctx context.Context, actor *gate.User, commandText string) (*gate.SubmitResult, error)
	Rules(ctx context.Context) ([]gate.Rule, error)
	CreateRule(ctx context.Context, actor *gate.User, pattern string, action gate.RuleAction) (*gate.Rule, error)
	CreateUser(ctx context.Context, actor *gate.User, username string, role gate.Role, credits int) (*gate.User, error)
	LookupUser(ctx context.Context, actor *gate.User, targetKey string) (*gate.User, error)
	UpdateUser(ctx context.Context, actor *gate.User, targetKey, username string, credits int) (*gate.User, error)
	DeleteUser(ctx context.Context, actor *gate.User, targetKey string) error
	Logs(ctx context.Context, actor *gate.User, opts gate.LogOptions) ([]*gate.LogRecord, error)
}

// errorBody is the JSON error envelope returned by every handler.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a service error to an HTTP status code and writes the
// JSON error envelope. Internal errors are logged but never exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *gate.ValidationError

	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{errorDetail{
			Code:    "unauthorized",
			Message: err.Error(),
		}})

	case errors.Is(err, gate.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{errorDetail{
			Code:    "forbidden",
			Message: err.Error(),
		}})

	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{errorDetail{
			Code:    "validation_error",
			Message: ve.Error(),
		}})

	case errors.Is(err, gate.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{errorDetail{
			Code:    "not_found",
			Message: "resource not found",
		}})

	default:
		slog.ErrorContext(r.Context(), "internal error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{errorDetail{
			Code:    "internal_error",
			Message: "An internal error occurred. Please try again later.",
		}})
	}
}

// decodeJSON decodes a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return gate.NewValidationError("body", "malformed JSON request body", err)
	}
	return nil
}
