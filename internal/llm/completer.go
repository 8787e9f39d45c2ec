package llm

import (
	"context"
	"iter"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent after the system prompt.
type Message struct {
	Role    Role
	Content string
}

// Mode selects free-text or structured (JSON object) output.
type Mode int

const (
	ModeText Mode = iota
	ModeJSON
)

func (m Mode) String() string {
	if m == ModeJSON {
		return "json"
	}
	return "text"
}

// Completer defines the interface contract for chat-completion services.
// Implementations never retry; callers map failures to their own fallbacks.
type Completer interface {
	Complete(ctx context.Context, system string, conversation []Message, mode Mode) (string, error)
	// Stream yields text increments of a free-text completion. The sequence
	// can be consumed once.
	Stream(ctx context.Context, system string, conversation []Message) iter.Seq2[string, error]
	ModelName() string
}
