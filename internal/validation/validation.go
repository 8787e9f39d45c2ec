// Package validation checks request bodies field by field. Every failing
// field is reported, not just the first.
package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Field limits for request bodies.
const (
	MaxBehaviorTextLength = 500
	MaxVisionLength       = 2000
	MaxMessageLength      = 4000
	MaxBehaviors          = 300
	MaxHistoryEntries     = 64
	MaxExcludeTexts       = 500
	// bcrypt ignores input past 72 bytes.
	MaxPasswordBytes = 72
)

// ValidationError is one invalid field, in the shape of an RFC 7807 errors entry.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates field errors.
type Collector struct {
	errors []ValidationError
}

func (c *Collector) fail(field, format string, args ...any) {
	c.errors = append(c.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the accumulated errors in the order they were found.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// HasErrors reports whether any field failed.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Text checks a free-text field: valid UTF-8, no NUL bytes, at most max runes.
func (c *Collector) Text(field, value string, max int) {
	switch {
	case !utf8.ValidString(value):
		c.fail(field, "must be valid UTF-8")
	case strings.ContainsRune(value, 0):
		c.fail(field, "must not contain null bytes")
	case utf8.RuneCountInString(value) > max:
		c.fail(field, "exceeds maximum length of %d characters", max)
	}
}

// RequiredText is Text for a field that must not be blank.
func (c *Collector) RequiredText(field, value string, max int) {
	if strings.TrimSpace(value) == "" {
		c.fail(field, "is required")
		return
	}
	c.Text(field, value, max)
}

// Percent checks a 0–100 canvas or score value.
func (c *Collector) Percent(field string, value float64) {
	if value < 0 || value > 100 {
		c.fail(field, "must be between 0 and 100")
	}
}

// OneOf checks value against an allowed set. Matching is case sensitive.
func (c *Collector) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		c.fail(field, "must be one of: %s", strings.Join(allowed, ", "))
	}
}

// Count checks that a list has at most max entries. It reports whether the
// list is within the limit so callers can skip per-entry checks.
func (c *Collector) Count(field string, n, max int, noun string) bool {
	if n > max {
		c.fail(field, "exceeds maximum of %d %s", max, noun)
		return false
	}
	return true
}
