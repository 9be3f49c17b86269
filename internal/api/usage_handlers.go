package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/promptlib/promptlib/internal/models"
	"github.com/promptlib/promptlib/internal/usage"
)

// UsageLogReader lists usage records.
type UsageLogReader interface {
	List(ctx context.Context, query models.UsageLogQuery) ([]models.UsageLog, error)
}

// UsageHandler serves usage logs and their aggregation
type UsageHandler struct {
	logs   UsageLogReader
	logger *slog.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(logs UsageLogReader, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{logs: logs, logger: logger}
}

// ListLogs handles GET /usage-logs
func (h *UsageHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	userID, err := resolveScope(identity, q.Get("scope"), q.Get("userId"))
	if err != nil {
		writeScopeError(w, h.logger, err)
		return
	}

	limit, offset, err := parsePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	start, end, err := parseTimeRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	query := models.UsageLogQuery{
		UserID:        userID,
		Provider:      models.Provider(q.Get("provider")),
		OperationType: models.OperationType(q.Get("operation")),
		Start:         start,
		End:           end,
		Limit:         limit,
		Offset:        offset,
	}
	if query.Provider != "" && !query.Provider.Valid() {
		writeValidationError(w, h.logger, ValidationError{Field: "provider", Message: "Provider must be 'openai' or 'anthropic'"})
		return
	}
	if raw := q.Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidationError(w, h.logger, ValidationError{Field: "success", Message: "Success must be true or false"})
			return
		}
		query.Success = &success
	}

	logs, err := h.logs.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list usage logs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list usage logs")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, logs)
}

// Analytics handles GET /analytics/usage. Buckets are computed from the
// matching logs on every request. Failed calls are included.
func (h *UsageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()

	granularity := models.GranularityDay
	if raw := q.Get("granularity"); raw != "" {
		g, ok := models.ParseGranularity(raw)
		if !ok {
			writeValidationError(w, h.logger, ValidationError{Field: "granularity", Message: "Granularity must be day, week or month"})
			return
		}
		granularity = g
	}

	order := usage.Ascending
	if raw := q.Get("order"); raw != "" {
		o, ok := usage.ParseOrder(raw)
		if !ok {
			writeValidationError(w, h.logger, ValidationError{Field: "order", Message: "Order must be asc or desc"})
			return
		}
		order = o
	}

	userID, err := resolveScope(identity, q.Get("scope"), q.Get("userId"))
	if err != nil {
		writeScopeError(w, h.logger, err)
		return
	}

	start, end, err := parseTimeRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeValidationError(w, h.logger, err)
		return
	}

	logs, err := h.logs.List(r.Context(), models.UsageLogQuery{UserID: userID, Start: start, End: end})
	if err != nil {
		h.logger.Error("failed to load usage logs for analytics", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load usage analytics")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, usage.Aggregate(logs, granularity, order))
}
