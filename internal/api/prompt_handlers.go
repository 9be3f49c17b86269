package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/auth"
	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
)

// PromptStore is the prompt repository used by the prompt and optimization handlers.
type PromptStore interface {
	Create(ctx context.Context, prompt models.Prompt) error
	GetOwned(ctx context.Context, promptID, userID string) (*models.Prompt, error)
	GetVisible(ctx context.Context, promptID, userID string) (*models.Prompt, error)
	ListByUser(ctx context.Context, userID string) ([]models.Prompt, error)
	ListPublic(ctx context.Context, query models.PublicPromptQuery) ([]models.Prompt, error)
	Update(ctx context.Context, promptID, userID string, input models.PromptInput) (*models.Prompt, error)
	UpdateContent(ctx context.Context, promptID, userID, content string) (*models.Prompt, error)
	Delete(ctx context.Context, promptID, userID string) error
}

// HistoryReader reads optimization history.
type HistoryReader interface {
	ListByPrompt(ctx context.Context, promptID string) ([]models.OptimizationVersion, error)
	Get(ctx context.Context, promptID string, version int, provider models.Provider) (*models.OptimizationVersion, error)
}

// PromptHandler handles prompt CRUD and history endpoints
type PromptHandler struct {
	prompts PromptStore
	history HistoryReader
	logger  *slog.Logger
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(prompts PromptStore, history HistoryReader, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, history: history, logger: logger}
}

// ApplyVersionRequest selects which provider's output to adopt.
type ApplyVersionRequest struct {
	Provider models.Provider `json:"provider"`
}

// Create handles POST /prompts
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var input models.PromptInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	if err := ValidatePromptInput(&input); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	now := time.Now().UTC()
	prompt := models.Prompt{
		ID:          uuid.NewString(),
		UserID:      identity.UserID,
		Title:       input.Title,
		Content:     input.Content,
		Description: input.Description,
		Category:    input.Category,
		Tags:        input.Tags,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.prompts.Create(r.Context(), prompt); err != nil {
		h.logger.Error("failed to create prompt", "user_id", identity.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create prompt")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, prompt)
}

// List handles GET /prompts
func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	prompts, err := h.prompts.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list prompts", "user_id", identity.UserID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list prompts")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, prompts)
}

// ListPublic handles GET /public/prompts
func (h *PromptHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := parsePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	prompts, err := h.prompts.ListPublic(r.Context(), models.PublicPromptQuery{
		Category: q.Get("category"),
		Search:   q.Get("q"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.Error("failed to list public prompts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list prompts")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, prompts)
}

// Get handles GET /prompts/{id}. Anonymous callers only see public prompts.
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	var userID string
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		userID = identity.UserID
	}

	prompt, err := h.prompts.GetVisible(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, prompt)
}

// Update handles PUT /prompts/{id}
func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var input models.PromptInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	if err := ValidatePromptInput(&input); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	prompt, err := h.prompts.Update(r.Context(), r.PathValue("id"), identity.UserID, input)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, prompt)
}

// Delete handles DELETE /prompts/{id}
func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.prompts.Delete(r.Context(), r.PathValue("id"), identity.UserID); err != nil {
		h.writeLookupError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /prompts/{id}/optimizations
func (h *PromptHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	prompt, err := h.prompts.GetOwned(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	versions, err := h.history.ListByPrompt(r.Context(), prompt.ID)
	if err != nil {
		h.logger.Error("failed to list optimization history", "prompt_id", prompt.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load history")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, versions)
}

// ApplyVersion handles POST /prompts/{id}/optimizations/{version}/apply. It
// is the only path that replaces a prompt's content with an optimized output.
func (h *PromptHandler) ApplyVersion(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version <= 0 {
		writeValidationError(w, h.logger, ValidationError{Field: "version", Message: "Version must be a positive integer"})
		return
	}

	var req ApplyVersionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	if !req.Provider.Valid() {
		writeValidationError(w, h.logger, ValidationError{Field: "provider", Message: "Provider must be 'openai' or 'anthropic'"})
		return
	}

	prompt, err := h.prompts.GetOwned(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	row, err := h.history.Get(r.Context(), prompt.ID, version, req.Provider)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	updated, err := h.prompts.UpdateContent(r.Context(), prompt.ID, identity.UserID, row.OutputText)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	h.logger.Info("optimization applied",
		"prompt_id", prompt.ID,
		"version", version,
		"provider", req.Provider)

	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *PromptHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	h.logger.Error("prompt lookup failed", "error", err)
	writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
}
