package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/promptlib/promptlib/internal/models"
)

const promptColumns = `id, user_id, title, content, description, category, tags,
	is_public, optimization_count, created_at, updated_at`

const defaultPublicLimit = 50

// PromptRepository handles prompt persistence. Every mutating method is
// scoped by owner so a caller can never touch another user's row.
type PromptRepository struct {
	db *sql.DB
}

// NewPromptRepository creates a new repository
func NewPromptRepository(db *sql.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// Create inserts a prompt.
func (r *PromptRepository) Create(ctx context.Context, prompt models.Prompt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompts (`+promptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		prompt.ID, prompt.UserID, prompt.Title, prompt.Content, prompt.Description,
		prompt.Category, pq.Array(prompt.Tags), prompt.IsPublic, prompt.OptimizationCount,
		prompt.CreatedAt, prompt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	return nil
}

// GetOwned returns the prompt only if userID owns it. A prompt owned by
// someone else is reported as ErrNotFound, same as a missing one.
func (r *PromptRepository) GetOwned(ctx context.Context, promptID, userID string) (*models.Prompt, error) {
	if uuid.Validate(promptID) != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+promptColumns+" FROM prompts WHERE id = $1 AND user_id = $2",
		promptID, userID,
	)
	return scanPrompt(row)
}

// GetVisible returns the prompt if userID owns it or it is public. An empty
// userID only sees public prompts.
func (r *PromptRepository) GetVisible(ctx context.Context, promptID, userID string) (*models.Prompt, error) {
	if uuid.Validate(promptID) != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+promptColumns+" FROM prompts WHERE id = $1 AND (is_public OR user_id::text = $2)",
		promptID, userID,
	)
	return scanPrompt(row)
}

// ListByUser returns a user's prompts, most recently updated first.
func (r *PromptRepository) ListByUser(ctx context.Context, userID string) ([]models.Prompt, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+promptColumns+" FROM prompts WHERE user_id = $1 ORDER BY updated_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()
	return scanPrompts(rows)
}

// ListPublic returns shared prompts matching the optional category and search term.
func (r *PromptRepository) ListPublic(ctx context.Context, query models.PublicPromptQuery) ([]models.Prompt, error) {
	sqlQuery := "SELECT " + promptColumns + " FROM prompts WHERE is_public"
	args := []interface{}{}
	argPos := 1

	if query.Category != "" {
		sqlQuery += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, query.Category)
		argPos++
	}

	if query.Search != "" {
		sqlQuery += fmt.Sprintf(` AND (title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, argPos, argPos)
		args = append(args, "%"+escapeLike(query.Search)+"%")
		argPos++
	}

	sqlQuery += " ORDER BY updated_at DESC"

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPublicLimit
	}
	sqlQuery += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)
	argPos++

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list public prompts: %w", err)
	}
	defer rows.Close()
	return scanPrompts(rows)
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// Update overwrites the writable fields of an owned prompt.
func (r *PromptRepository) Update(ctx context.Context, promptID, userID string, input models.PromptInput) (*models.Prompt, error) {
	if uuid.Validate(promptID) != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE prompts
		SET title = $3, content = $4, description = $5, category = $6, tags = $7,
		    is_public = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
		RETURNING `+promptColumns,
		promptID, userID, input.Title, input.Content, input.Description, input.Category,
		pq.Array(input.Tags), input.IsPublic, time.Now().UTC(),
	)
	return scanPrompt(row)
}

// UpdateContent replaces only the live content of an owned prompt.
func (r *PromptRepository) UpdateContent(ctx context.Context, promptID, userID, content string) (*models.Prompt, error) {
	if uuid.Validate(promptID) != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE prompts SET content = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING `+promptColumns,
		promptID, userID, content, time.Now().UTC(),
	)
	return scanPrompt(row)
}

// Delete removes an owned prompt and, by cascade, its history.
func (r *PromptRepository) Delete(ctx context.Context, promptID, userID string) error {
	if uuid.Validate(promptID) != nil {
		return ErrNotFound
	}
	result, err := r.db.ExecContext(ctx, "DELETE FROM prompts WHERE id = $1 AND user_id = $2", promptID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementOptimizationCount bumps the prompt's optimization counter by one.
func (r *PromptRepository) IncrementOptimizationCount(ctx context.Context, promptID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE prompts SET optimization_count = optimization_count + 1 WHERE id = $1",
		promptID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment optimization count: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var p models.Prompt
	var tags []string
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Content, &p.Description, &p.Category,
		pq.Array(&tags), &p.IsPublic, &p.OptimizationCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan prompt: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	p.Tags = tags
	return &p, nil
}

func scanPrompts(rows *sql.Rows) ([]models.Prompt, error) {
	prompts := []models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return prompts, nil
}
