package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/auth"
	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
)

// UserStore is the account repository used by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	users  UserStore
	config auth.Config
	logger *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(users UserStore, config auth.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		config: config,
		logger: logger,
	}
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := ValidateRegistration(req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			writeError(w, h.logger, http.StatusConflict, "Email is already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	h.issueToken(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	user, err := h.authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Warn("failed login attempt", "ip", r.RemoteAddr)
			// Use a generic error message to prevent username enumeration
			writeError(w, h.logger, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("successful login", "user_id", user.ID, "ip", r.RemoteAddr)
	h.issueToken(w, http.StatusOK, *user)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, h.logger, http.StatusUnauthorized, "Account no longer exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", "user_id", identity.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, user)
}

func (h *AuthHandler) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}
	user, err := h.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user models.User) {
	token, expiresAt, err := auth.GenerateToken(user, h.config.JWTSecret, h.config.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, h.logger, status, LoginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
