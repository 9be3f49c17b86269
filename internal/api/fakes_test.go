package api

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]models.User{}} }

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(user.Email) {
			return database.ErrEmailTaken
		}
	}
	user.Email = strings.ToLower(user.Email)
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, database.ErrNotFound
}

type memPrompts struct {
	mu      sync.Mutex
	prompts map[string]models.Prompt
}

func newMemPrompts() *memPrompts { return &memPrompts{prompts: map[string]models.Prompt{}} }

func (m *memPrompts) Create(_ context.Context, p models.Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[p.ID] = p
	return nil
}

func (m *memPrompts) GetOwned(_ context.Context, id, userID string) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok || p.UserID != userID {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (m *memPrompts) GetVisible(_ context.Context, id, userID string) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok || (!p.IsPublic && p.UserID != userID) {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (m *memPrompts) ListByUser(_ context.Context, userID string) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Prompt{}
	for _, p := range m.prompts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrompts) ListPublic(_ context.Context, q models.PublicPromptQuery) ([]models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Prompt{}
	for _, p := range m.prompts {
		if !p.IsPublic || (q.Category != "" && p.Category != q.Category) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memPrompts) Update(_ context.Context, id, userID string, in models.PromptInput) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok || p.UserID != userID {
		return nil, database.ErrNotFound
	}
	p.Title, p.Content, p.Description, p.Category, p.Tags, p.IsPublic = in.Title, in.Content, in.Description, in.Category, in.Tags, in.IsPublic
	m.prompts[id] = p
	return &p, nil
}

func (m *memPrompts) UpdateContent(_ context.Context, id, userID, content string) (*models.Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok || p.UserID != userID {
		return nil, database.ErrNotFound
	}
	p.Content = content
	m.prompts[id] = p
	return &p, nil
}

func (m *memPrompts) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok || p.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.prompts, id)
	return nil
}

func (m *memPrompts) IncrementOptimizationCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[id]
	if !ok {
		return database.ErrNotFound
	}
	p.OptimizationCount++
	m.prompts[id] = p
	return nil
}

type memHistory struct {
	mu   sync.Mutex
	rows []models.OptimizationVersion
}

func (m *memHistory) Insert(_ context.Context, v models.OptimizationVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, v)
	return nil
}

func (m *memHistory) ListByPrompt(_ context.Context, promptID string) ([]models.OptimizationVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.OptimizationVersion{}
	for _, v := range m.rows {
		if v.PromptID == promptID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memHistory) Get(_ context.Context, promptID string, version int, provider models.Provider) (*models.OptimizationVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rows {
		if v.PromptID == promptID && v.Version == version && v.Provider == provider {
			return &v, nil
		}
	}
	return nil, database.ErrNotFound
}

type memUsageLogs struct {
	mu   sync.Mutex
	logs []models.UsageLog
}

func (m *memUsageLogs) Insert(_ context.Context, log models.UsageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memUsageLogs) List(_ context.Context, q models.UsageLogQuery) ([]models.UsageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UsageLog{}
	for _, l := range m.logs {
		if q.UserID != "" && l.UserID != q.UserID {
			continue
		}
		if q.Provider != "" && l.Provider != q.Provider {
			continue
		}
		if q.Success != nil && l.Success != *q.Success {
			continue
		}
		if q.Start != nil && l.CreatedAt.Before(*q.Start) {
			continue
		}
		if q.End != nil && !l.CreatedAt.Before(*q.End) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
