package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/config"
	"github.com/promptlib/promptlib/internal/models"
	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, config.DatabaseConfig{URL: dsn, MaxOpenConns: 5, MaxIdleConns: 1, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := RunMigrations(ctx, db, Migrations(), logger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, repo *UserRepository) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		DisplayName:  "Tester",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestRepositoriesAgainstPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	prompts := NewPromptRepository(db)
	history := NewOptimizationRepository(db)
	usage := NewUsageLogRepository(db)

	owner := createTestUser(t, users)
	stranger := createTestUser(t, users)

	t.Run("duplicate email", func(t *testing.T) {
		dup := owner
		dup.ID = uuid.NewString()
		if err := users.Create(ctx, dup); !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	now := time.Now().UTC()
	prompt := models.Prompt{
		ID:        uuid.NewString(),
		UserID:    owner.ID,
		Title:     "Summarize",
		Content:   "summarize this",
		Tags:      []string{"writing"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := prompts.Create(ctx, prompt); err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}

	t.Run("ownership", func(t *testing.T) {
		if _, err := prompts.GetOwned(ctx, prompt.ID, stranger.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
		}
		got, err := prompts.GetOwned(ctx, prompt.ID, owner.ID)
		if err != nil {
			t.Fatalf("GetOwned returned error: %v", err)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "writing" {
			t.Errorf("unexpected tags: %v", got.Tags)
		}
		if _, err := prompts.GetOwned(ctx, "not-a-uuid", owner.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
		}
	})

	t.Run("optimization counter and history", func(t *testing.T) {
		if err := prompts.IncrementOptimizationCount(ctx, prompt.ID); err != nil {
			t.Fatalf("IncrementOptimizationCount returned error: %v", err)
		}
		got, _ := prompts.GetOwned(ctx, prompt.ID, owner.ID)
		if got.OptimizationCount != 1 {
			t.Fatalf("expected count 1, got %d", got.OptimizationCount)
		}

		version := models.OptimizationVersion{
			ID:         uuid.NewString(),
			PromptID:   prompt.ID,
			Version:    1,
			Provider:   models.ProviderOpenAI,
			Model:      "gpt-4o",
			OutputText: "better prompt",
			CostUSD:    decimal.RequireFromString("0.0075"),
			CreatedBy:  owner.ID,
			CreatedAt:  now,
		}
		if err := history.Insert(ctx, version); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
		stored, err := history.Get(ctx, prompt.ID, 1, models.ProviderOpenAI)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if !stored.CostUSD.Equal(version.CostUSD) {
			t.Errorf("cost = %s, want %s", stored.CostUSD, version.CostUSD)
		}
		if _, err := history.Get(ctx, prompt.ID, 1, models.ProviderAnthropic); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for missing leg, got %v", err)
		}
	})

	t.Run("usage logs", func(t *testing.T) {
		message := "vendor down"
		logs := []models.UsageLog{
			{ID: uuid.NewString(), UserID: owner.ID, PromptID: &prompt.ID, Provider: models.ProviderOpenAI, Model: "gpt-4o",
				OperationType: models.OperationOptimize, InputTokens: 10, OutputTokens: 5, TotalTokens: 15,
				CostUSD: decimal.RequireFromString("0.001"), LatencyMs: 120, Success: true, CreatedAt: now},
			{ID: uuid.NewString(), UserID: owner.ID, Provider: models.ProviderAnthropic, Model: "claude-sonnet-4",
				OperationType: models.OperationOptimize, CostUSD: decimal.Zero, LatencyMs: 80, Success: false,
				ErrorMessage: &message, CreatedAt: now},
		}
		for _, l := range logs {
			if err := usage.Insert(ctx, l); err != nil {
				t.Fatalf("Insert returned error: %v", err)
			}
		}

		all, err := usage.List(ctx, models.UsageLogQuery{UserID: owner.ID})
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 logs, got %d", len(all))
		}

		failed := false
		onlyFailed, err := usage.List(ctx, models.UsageLogQuery{UserID: owner.ID, Success: &failed})
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(onlyFailed) != 1 || onlyFailed[0].ErrorMessage == nil || *onlyFailed[0].ErrorMessage != message {
			t.Fatalf("unexpected failed logs: %+v", onlyFailed)
		}
	})

	t.Run("public search matches wildcards literally", func(t *testing.T) {
		marker := uuid.NewString()[:8]
		titles := []string{"100% " + marker, "1000 " + marker, "a_b " + marker, "axb " + marker}
		for _, title := range titles {
			p := models.Prompt{ID: uuid.NewString(), UserID: owner.ID, Title: title, Content: "x", Tags: []string{}, IsPublic: true, CreatedAt: now, UpdatedAt: now}
			if err := prompts.Create(ctx, p); err != nil {
				t.Fatalf("failed to create prompt: %v", err)
			}
		}

		for search, want := range map[string]string{"100% " + marker: "100% " + marker, "a_b " + marker: "a_b " + marker} {
			got, err := prompts.ListPublic(ctx, models.PublicPromptQuery{Search: search})
			if err != nil {
				t.Fatalf("ListPublic returned error: %v", err)
			}
			if len(got) != 1 || got[0].Title != want {
				t.Errorf("search %q returned %d prompts, want only %q", search, len(got), want)
			}
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := prompts.Delete(ctx, prompt.ID, stranger.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound deleting someone else's prompt, got %v", err)
		}
		if err := prompts.Delete(ctx, prompt.ID, owner.ID); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
	})
}
