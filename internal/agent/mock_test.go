package agent

import (
	"context"
	"iter"
	"sync"

	"github.com/hyperengineering/tinyleap/internal/llm"
)

// completerCall records one invocation of mockCompleter.
type completerCall struct {
	system       string
	conversation []llm.Message
	mode         llm.Mode
	streamed     bool
}

// mockCompleter implements llm.Completer for testing. Responses are consumed
// in order; when exhausted the last one is repeated.
type mockCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	// streamErrAfter makes Stream fail after yielding this many chunks (-1 disables).
	streamErrAfter int
	chunks         []string
	calls          []completerCall
}

func newMockCompleter(responses ...string) *mockCompleter {
	return &mockCompleter{responses: responses, streamErrAfter: -1}
}

func (m *mockCompleter) next() (string, error) {
	i := len(m.calls) - 1
	var resp string
	var err error
	if len(m.responses) > 0 {
		resp = m.responses[min(i, len(m.responses)-1)]
	}
	if len(m.errs) > 0 {
		err = m.errs[min(i, len(m.errs)-1)]
	}
	return resp, err
}

func (m *mockCompleter) Complete(ctx context.Context, system string, conversation []llm.Message, mode llm.Mode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, completerCall{system: system, conversation: conversation, mode: mode})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.next()
}

func (m *mockCompleter) Stream(ctx context.Context, system string, conversation []llm.Message) iter.Seq2[string, error] {
	m.mu.Lock()
	m.calls = append(m.calls, completerCall{system: system, conversation: conversation, streamed: true})
	resp, err := m.next()
	chunks := m.chunks
	errAfter := m.streamErrAfter
	m.mu.Unlock()

	if chunks == nil && resp != "" {
		chunks = []string{resp}
	}
	return func(yield func(string, error) bool) {
		for i, c := range chunks {
			if errAfter >= 0 && i == errAfter {
				yield("", err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err != nil && (errAfter < 0 || errAfter >= len(chunks)) {
			yield("", err)
		}
	}
}

func (m *mockCompleter) ModelName() string { return "mock-model" }

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockCompleter) lastCall() completerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}
