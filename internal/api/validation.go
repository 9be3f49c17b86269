package api

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/promptlib/promptlib/internal/models"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
	maxContentLength     = 50000
	maxTags              = 20
	maxTagLength         = 40
	minPasswordLength    = 8

	defaultPageLimit = 100
	maxPageLimit     = 500
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRegistration validates a sign-up request
func ValidateRegistration(req RegisterRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return ValidationError{Field: "email", Message: "Email is required"}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return ValidationError{Field: "email", Message: "Email address is invalid"}
	}
	if len(req.Password) < minPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength)}
	}
	if len(req.DisplayName) > maxTitleLength {
		return ValidationError{Field: "displayName", Message: "Display name is too long"}
	}
	return nil
}

// ValidatePromptInput validates prompt create and update payloads
func ValidatePromptInput(input *models.PromptInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)

	if input.Title == "" {
		return ValidationError{Field: "title", Message: "Title is required"}
	}
	if len(input.Title) > maxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("Title must be at most %d characters", maxTitleLength)}
	}
	if strings.TrimSpace(input.Content) == "" {
		return ValidationError{Field: "content", Message: "Content is required"}
	}
	if len(input.Content) > maxContentLength {
		return ValidationError{Field: "content", Message: fmt.Sprintf("Content must be at most %d characters", maxContentLength)}
	}
	if len(input.Description) > maxDescriptionLength {
		return ValidationError{Field: "description", Message: fmt.Sprintf("Description must be at most %d characters", maxDescriptionLength)}
	}
	if len(input.Tags) > maxTags {
		return ValidationError{Field: "tags", Message: fmt.Sprintf("At most %d tags are allowed", maxTags)}
	}

	tags := make([]string, 0, len(input.Tags))
	seen := make(map[string]bool, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > maxTagLength {
			return ValidationError{Field: "tags", Message: fmt.Sprintf("Tags must be at most %d characters", maxTagLength)}
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	input.Tags = tags
	return nil
}

// parsePagination reads limit and offset query values.
func parsePagination(limitRaw, offsetRaw string) (int, int, error) {
	limit := defaultPageLimit
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil || n <= 0 {
			return 0, 0, ValidationError{Field: "limit", Message: "Limit must be a positive integer"}
		}
		limit = min(n, maxPageLimit)
	}

	offset := 0
	if offsetRaw != "" {
		n, err := strconv.Atoi(offsetRaw)
		if err != nil || n < 0 {
			return 0, 0, ValidationError{Field: "offset", Message: "Offset must be a non-negative integer"}
		}
		offset = n
	}
	return limit, offset, nil
}

// parseTimeParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC
// midnight). dateOnly reports which form was given.
func parseTimeParam(field, raw string) (t *time.Time, dateOnly bool, err error) {
	if raw == "" {
		return nil, false, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, false, nil
	}
	if parsed, err := time.Parse(time.DateOnly, raw); err == nil {
		return &parsed, true, nil
	}
	return nil, false, ValidationError{Field: field, Message: "Must be an RFC 3339 timestamp or YYYY-MM-DD date"}
}

// parseTimeRange parses start and end and rejects an inverted range. The
// returned end is exclusive; a date-only end covers that whole UTC day.
func parseTimeRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	start, _, err := parseTimeParam("start", startRaw)
	if err != nil {
		return nil, nil, err
	}
	end, endDateOnly, err := parseTimeParam("end", endRaw)
	if err != nil {
		return nil, nil, err
	}
	if end != nil && endDateOnly {
		next := end.AddDate(0, 0, 1)
		end = &next
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, ValidationError{Field: "end", Message: "End must be after start"}
	}
	return start, end, nil
}
