// Package llm adapts vendor SDKs to a single text-completion interface.
// Vendor response shapes are converted to Completion at this boundary and go
// no further.
package llm

import (
	"context"
	"errors"

	"github.com/promptlib/promptlib/internal/models"
)

// ErrEmptyResponse is returned when a vendor answers without any text.
var ErrEmptyResponse = errors.New("empty response from provider")

// CompletionRequest is one text completion call.
type CompletionRequest struct {
	SystemPrompt    string
	Prompt          string
	MaxOutputTokens int
}

// Completion is a vendor-neutral completion result. Model is what the vendor
// reports having run, which may be a dated snapshot of the requested model.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Completer is implemented by every vendor client.
type Completer interface {
	Provider() models.Provider
	Model() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
