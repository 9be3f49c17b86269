package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/promptlib/promptlib/internal/models"
)

const optimizationColumns = `id, prompt_id, version, provider, model, output_text,
	tokens_input, tokens_output, cost_usd, latency_ms, created_by, created_at`

// OptimizationRepository stores prompt optimization history.
type OptimizationRepository struct {
	db *sql.DB
}

// NewOptimizationRepository creates a new repository
func NewOptimizationRepository(db *sql.DB) *OptimizationRepository {
	return &OptimizationRepository{db: db}
}

// Insert appends one provider's output for a version.
func (r *OptimizationRepository) Insert(ctx context.Context, v models.OptimizationVersion) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompt_optimizations (`+optimizationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		v.ID, v.PromptID, v.Version, v.Provider, v.Model, v.OutputText,
		v.TokensInput, v.TokensOutput, v.CostUSD, v.LatencyMs, v.CreatedBy, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert optimization version: %w", err)
	}
	return nil
}

// ListByPrompt returns the history of a prompt, newest version first.
func (r *OptimizationRepository) ListByPrompt(ctx context.Context, promptID string) ([]models.OptimizationVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+optimizationColumns+" FROM prompt_optimizations WHERE prompt_id = $1 ORDER BY version DESC, provider",
		promptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list optimization versions: %w", err)
	}
	defer rows.Close()

	versions := []models.OptimizationVersion{}
	for rows.Next() {
		v, err := scanOptimization(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating optimization versions: %w", err)
	}
	return versions, nil
}

// Get returns one provider's output for a version. When duplicate rows exist
// the latest one wins.
func (r *OptimizationRepository) Get(ctx context.Context, promptID string, version int, provider models.Provider) (*models.OptimizationVersion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+optimizationColumns+` FROM prompt_optimizations
		WHERE prompt_id = $1 AND version = $2 AND provider = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, promptID, version, provider)
	return scanOptimization(row)
}

func scanOptimization(row rowScanner) (*models.OptimizationVersion, error) {
	var v models.OptimizationVersion
	err := row.Scan(
		&v.ID, &v.PromptID, &v.Version, &v.Provider, &v.Model, &v.OutputText,
		&v.TokensInput, &v.TokensOutput, &v.CostUSD, &v.LatencyMs, &v.CreatedBy, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan optimization version: %w", err)
	}
	return &v, nil
}
