package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promptlib/promptlib/internal/auth"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// writeValidationError maps a ValidationError to 400 and anything else to 500.
func writeValidationError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var vErr ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: vErr.Message, Field: vErr.Field})
		return
	}
	logger.Error("unexpected error", "error", err)
	writeError(w, logger, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return nil
}

// requireIdentity returns the caller or writes 401.
func requireIdentity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, logger, http.StatusUnauthorized, "Authentication required")
		return auth.Identity{}, false
	}
	return identity, true
}

// resolveScope decides whose rows a read covers. Only admins may pass
// scope=all or name another user.
func resolveScope(identity auth.Identity, scope, userID string) (string, error) {
	switch strings.ToLower(scope) {
	case "", "own":
		if userID != "" && userID != identity.UserID && !identity.IsAdmin() {
			return "", errForbidden
		}
		if userID != "" {
			return userID, nil
		}
		return identity.UserID, nil
	case "all":
		if !identity.IsAdmin() {
			return "", errForbidden
		}
		return userID, nil
	default:
		return "", ValidationError{Field: "scope", Message: "Scope must be 'own' or 'all'"}
	}
}

var errForbidden = errors.New("forbidden")

func writeScopeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, errForbidden) {
		writeError(w, logger, http.StatusForbidden, "Admin role required")
		return
	}
	writeValidationError(w, logger, err)
}

// CORSMiddleware sets permissive CORS headers and answers preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
