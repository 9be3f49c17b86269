package models

import "time"

// Prompt is a stored text prompt owned by one user and optionally shared publicly.
type Prompt struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	Tags              []string  `json:"tags"`
	IsPublic          bool      `json:"isPublic"`
	OptimizationCount int       `json:"optimizationCount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NextOptimizationVersion is the version number the next optimization run will use.
func (p Prompt) NextOptimizationVersion() int {
	return p.OptimizationCount + 1
}

// PromptInput carries the writable prompt fields for create and update.
type PromptInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"isPublic"`
}

// PublicPromptQuery filters the shared prompt listing.
type PublicPromptQuery struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}
