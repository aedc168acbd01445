package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/confly-app/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// Envelope is the uniform JSON response shape:
// {success: true, data} or {success: false, error, details?}.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

func writeErrorDetails(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, Envelope{Success: false, Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// userFromContext returns the identified caller, if any.
func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// userPtrFromContext is userFromContext for callers that model anonymity as
// a nil viewer.
func userPtrFromContext(ctx context.Context) *types.User {
	if user, ok := userFromContext(ctx); ok {
		return &user
	}
	return nil
}
