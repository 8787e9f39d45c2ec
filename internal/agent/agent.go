// Package agent implements the four LLM-backed agents of a workshop:
// Validator, Designer, Coach and SOP Writer. Every agent maps transport,
// parse and schema failures to a documented fallback value instead of an error.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// ErrSchemaViolation indicates structured output that parsed but broke its contract.
var ErrSchemaViolation = errors.New("structured output violates schema")

// Agent names used in logs and metrics.
const (
	nameValidator = "validator"
	nameDesigner  = "designer"
	nameQuestion  = "coach_question"
	nameFinal     = "coach_final"
	nameSOP       = "sop_writer"
)

// schema is implemented by every structured-output contract.
type schema interface {
	validate() error
}

// caller wraps a Completer with metrics and fallback logging for one agent.
type caller struct {
	completer llm.Completer
	metrics   *metrics.Metrics
	name      string
}

func (c caller) complete(ctx context.Context, system string, conversation []llm.Message, mode llm.Mode) (string, error) {
	start := time.Now()
	out, err := c.completer.Complete(ctx, system, conversation, mode)
	c.metrics.ObserveCall(c.name, outcome(err), time.Since(start))
	return out, err
}

// structured runs a JSON-mode completion, decodes it into out and checks its contract.
func (c caller) structured(ctx context.Context, system string, conversation []llm.Message, out schema) error {
	raw, err := c.complete(ctx, system, conversation, llm.ModeJSON)
	if err != nil {
		return err
	}
	if err := llm.DecodeJSON(raw, out); err != nil {
		return err
	}
	return out.validate()
}

// fallback records that the agent answered with its fallback value.
func (c caller) fallback(err error, attrs ...any) {
	reason := failureReason(err)
	c.metrics.Fallback(c.name, reason)
	args := append([]any{
		"component", "agent",
		"agent", c.name,
		"reason", reason,
		"error", err,
	}, attrs...)
	slog.Warn("agent call failed, using fallback", args...)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSchemaViolation):
		return "schema"
	case errors.Is(err, llm.ErrMalformedOutput):
		return "parse"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func schemaError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, fmt.Sprintf(format, args...))
}

func inRange(v *float64, min, max float64) bool {
	return v != nil && *v >= min && *v <= max
}

// toConversation maps a coaching chat history onto completion messages.
func toConversation(history []types.ChatEntry) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, entry := range history {
		role := llm.RoleUser
		if entry.Role == types.RoleAI {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: entry.Content})
	}
	return out
}
