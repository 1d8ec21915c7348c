package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bullwork-fleet/apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context
// by the auth middleware. Handlers read it from context only and never
// trust client-supplied identity fields.
type Identity struct {
	UserID int
	Role   types.Role
}

func identityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.UserID < 1 || !identity.Role.Valid() {
		return Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

// MessageResponse is the JSON body for confirmations and errors.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}
