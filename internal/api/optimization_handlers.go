package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
	"github.com/promptlib/promptlib/internal/optimizer"
)

// Optimizer runs optimizations for an already ownership-checked prompt.
type Optimizer interface {
	CompareBoth(ctx context.Context, prompt models.Prompt, promptText, userID string) (*optimizer.Comparison, error)
	Optimize(ctx context.Context, prompt models.Prompt, promptText, userID string, provider models.Provider) (*optimizer.Single, error)
}

// OptimizationHandler exposes the optimization endpoints
type OptimizationHandler struct {
	prompts   PromptStore
	optimizer Optimizer
	logger    *slog.Logger
}

// NewOptimizationHandler creates a new optimization handler
func NewOptimizationHandler(prompts PromptStore, opt Optimizer, logger *slog.Logger) *OptimizationHandler {
	return &OptimizationHandler{prompts: prompts, optimizer: opt, logger: logger}
}

// CompareRequest is the body of POST /optimizations/compare. PromptText
// defaults to the stored prompt content.
type CompareRequest struct {
	PromptID   string `json:"promptId"`
	PromptText string `json:"promptText"`
}

// OptimizeRequest is the body of POST /optimizations.
type OptimizeRequest struct {
	PromptID   string          `json:"promptId"`
	PromptText string          `json:"promptText"`
	Provider   models.Provider `json:"provider"`
}

// LegErrors carries each leg's error message, null when the leg succeeded.
type LegErrors struct {
	A *string `json:"a"`
	B *string `json:"b"`
}

// CompareResponse is returned by POST /optimizations/compare.
type CompareResponse struct {
	Version int                         `json:"version"`
	ResultA *models.OptimizationAttempt `json:"resultA"`
	ResultB *models.OptimizationAttempt `json:"resultB"`
	Errors  LegErrors                   `json:"errors"`
	Error   string                      `json:"error,omitempty"`
}

// OptimizeResponse is returned by POST /optimizations.
type OptimizeResponse struct {
	Version int                         `json:"version"`
	Result  *models.OptimizationAttempt `json:"result"`
	Error   string                      `json:"error,omitempty"`
}

// Compare handles POST /optimizations/compare
func (h *OptimizationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req CompareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	prompt, text, ok := h.loadPrompt(w, r, req.PromptID, req.PromptText, identity.UserID)
	if !ok {
		return
	}

	comparison, err := h.optimizer.CompareBoth(r.Context(), *prompt, text, identity.UserID)
	if err != nil && !errors.Is(err, optimizer.ErrAllProvidersFailed) {
		h.writeOptimizerError(w, err)
		return
	}

	resp := CompareResponse{
		Version: comparison.Version,
		ResultA: comparison.ResultA,
		ResultB: comparison.ResultB,
		Errors: LegErrors{
			A: comparison.ResultA.ErrorMessage,
			B: comparison.ResultB.ErrorMessage,
		},
	}

	if err != nil {
		resp.Error = "All providers failed to optimize the prompt. Please try again."
		writeJSON(w, h.logger, http.StatusBadGateway, resp)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Optimize handles POST /optimizations
func (h *OptimizationHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req OptimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, h.logger, err)
		return
	}
	if !req.Provider.Valid() {
		writeValidationError(w, h.logger, ValidationError{Field: "provider", Message: "Provider must be 'openai' or 'anthropic'"})
		return
	}

	prompt, text, ok := h.loadPrompt(w, r, req.PromptID, req.PromptText, identity.UserID)
	if !ok {
		return
	}

	single, err := h.optimizer.Optimize(r.Context(), *prompt, text, identity.UserID, req.Provider)
	if err != nil && !errors.Is(err, optimizer.ErrAllProvidersFailed) {
		h.writeOptimizerError(w, err)
		return
	}

	resp := OptimizeResponse{Version: single.Version, Result: single.Result}
	if err != nil {
		resp.Error = single.Result.ErrorText()
		writeJSON(w, h.logger, http.StatusBadGateway, resp)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// loadPrompt validates the ids and resolves the text to optimize. Every
// failure here happens before any vendor call.
func (h *OptimizationHandler) loadPrompt(w http.ResponseWriter, r *http.Request, promptID, promptText, userID string) (*models.Prompt, string, bool) {
	if strings.TrimSpace(promptID) == "" {
		writeValidationError(w, h.logger, ValidationError{Field: "promptId", Message: "Prompt ID is required"})
		return nil, "", false
	}

	prompt, err := h.prompts.GetOwned(r.Context(), promptID, userID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Prompt not found")
		return nil, "", false
	}
	if err != nil {
		h.logger.Error("failed to load prompt", "prompt_id", promptID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return nil, "", false
	}

	text := promptText
	if strings.TrimSpace(text) == "" {
		text = prompt.Content
	}
	if strings.TrimSpace(text) == "" {
		writeValidationError(w, h.logger, ValidationError{Field: "promptText", Message: "Prompt text is required"})
		return nil, "", false
	}
	if len(text) > maxContentLength {
		writeValidationError(w, h.logger, ValidationError{Field: "promptText", Message: "Prompt text is too long"})
		return nil, "", false
	}

	return prompt, text, true
}

func (h *OptimizationHandler) writeOptimizerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, optimizer.ErrEmptyPrompt):
		writeValidationError(w, h.logger, ValidationError{Field: "promptText", Message: "Prompt text is required"})
	case errors.Is(err, optimizer.ErrUnknownProvider):
		writeValidationError(w, h.logger, ValidationError{Field: "provider", Message: "Provider is not configured"})
	default:
		h.logger.Error("optimization failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}
