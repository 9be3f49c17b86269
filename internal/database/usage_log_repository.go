package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/promptlib/promptlib/internal/models"
)

// UsageLogRepository is the append-only store of LLM invocations.
type UsageLogRepository struct {
	db *sqlx.DB
}

// NewUsageLogRepository creates a new repository
func NewUsageLogRepository(db *sql.DB) *UsageLogRepository {
	return &UsageLogRepository{db: sqlx.NewDb(db, "postgres")}
}

// Insert appends one usage record. Rows are never updated or deleted.
func (r *UsageLogRepository) Insert(ctx context.Context, log models.UsageLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO usage_logs (
			id, user_id, prompt_id, provider, model, operation_type,
			input_tokens, output_tokens, total_tokens, cost_usd, latency_ms,
			success, error_message, created_at
		) VALUES (
			:id, :user_id, :prompt_id, :provider, :model, :operation_type,
			:input_tokens, :output_tokens, :total_tokens, :cost_usd, :latency_ms,
			:success, :error_message, :created_at
		)
	`, log)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}
	return nil
}

// List retrieves usage logs with optional filtering, newest first. A zero
// Limit returns every matching row.
func (r *UsageLogRepository) List(ctx context.Context, query models.UsageLogQuery) ([]models.UsageLog, error) {
	sqlQuery := `
		SELECT id, user_id, prompt_id, provider, model, operation_type,
		       input_tokens, output_tokens, total_tokens, cost_usd, latency_ms,
		       success, error_message, created_at
		FROM usage_logs
		WHERE 1=1
	`
	args := []interface{}{}

	if query.UserID != "" {
		sqlQuery += " AND user_id = ?"
		args = append(args, query.UserID)
	}
	if query.Provider != "" {
		sqlQuery += " AND provider = ?"
		args = append(args, query.Provider)
	}
	if query.OperationType != "" {
		sqlQuery += " AND operation_type = ?"
		args = append(args, query.OperationType)
	}
	if query.Success != nil {
		sqlQuery += " AND success = ?"
		args = append(args, *query.Success)
	}
	if query.Start != nil {
		sqlQuery += " AND created_at >= ?"
		args = append(args, *query.Start)
	}
	if query.End != nil {
		sqlQuery += " AND created_at < ?"
		args = append(args, *query.End)
	}

	sqlQuery += " ORDER BY created_at DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}
	if query.Offset > 0 {
		sqlQuery += " OFFSET ?"
		args = append(args, query.Offset)
	}

	logs := []models.UsageLog{}
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(sqlQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to query usage logs: %w", err)
	}
	return logs, nil
}
