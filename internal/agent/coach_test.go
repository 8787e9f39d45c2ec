package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/types"
)

func questionRequest(history ...types.ChatEntry) QuestionRequest {
	return QuestionRequest{
		Behavior: "Read one page",
		Vision:   "Read more books",
		History:  history,
		Critique: "Nice and tiny.",
		Language: types.LanguageEN,
	}
}

func TestOpeningMessage(t *testing.T) {
	if got := OpeningMessage(types.SourceUser, "critique", types.LanguageEN); got != "critique" {
		t.Errorf("user source opening = %q, want the critique", got)
	}
	if got := OpeningMessage(types.SourceAI, "critique", types.LanguageEN); got != WelcomeMessage(types.LanguageEN) {
		t.Errorf("ai source opening = %q, want the welcome message", got)
	}
}

func TestNextQuestion_AppendsIntroAfterAITurn(t *testing.T) {
	mock := newMockCompleter("What stops you today?")
	c := NewCoach(mock, nil)

	got := c.NextQuestion(context.Background(), questionRequest(types.ChatEntry{Role: types.RoleAI, Content: "Opening"}))

	if got != "What stops you today?" {
		t.Errorf("question = %q", got)
	}
	call := mock.lastCall()
	if !call.streamed {
		t.Error("questions should use the streaming call")
	}
	if len(call.conversation) != 2 {
		t.Fatalf("conversation length = %d, want 2", len(call.conversation))
	}
	if call.conversation[0].Role != llm.RoleAssistant {
		t.Errorf("first role = %q, want assistant", call.conversation[0].Role)
	}
	intro := call.conversation[1]
	if intro.Role != llm.RoleUser || !strings.Contains(intro.Content, "Read one page") || !strings.Contains(intro.Content, "Read more books") {
		t.Errorf("intro = %+v, want user message naming behavior and vision", intro)
	}
	if !strings.Contains(call.system, "Nice and tiny.") {
		t.Error("system prompt should carry the critique")
	}
}

func TestNextQuestion_SendsHistoryAsIsAfterUserTurn(t *testing.T) {
	mock := newMockCompleter("And after that?")
	c := NewCoach(mock, nil)

	c.NextQuestion(context.Background(), questionRequest(
		types.ChatEntry{Role: types.RoleAI, Content: "Opening"},
		types.ChatEntry{Role: types.RoleAI, Content: "Q1"},
		types.ChatEntry{Role: types.RoleUser, Content: "I am tired at night"},
	))

	call := mock.lastCall()
	if len(call.conversation) != 3 {
		t.Fatalf("conversation length = %d, want 3", len(call.conversation))
	}
	if last := call.conversation[2]; last.Role != llm.RoleUser || last.Content != "I am tired at night" {
		t.Errorf("last message = %+v, want the user's reply", last)
	}
}

func TestNextQuestion_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mockCompleter)
	}{
		{name: "transport error", setup: func(m *mockCompleter) { m.errs = []error{errors.New("boom")} }},
		{name: "empty text", setup: func(m *mockCompleter) { m.responses = []string{"   "} }},
		{name: "error after partial output", setup: func(m *mockCompleter) {
			m.chunks = []string{"What ", "stops"}
			m.streamErrAfter = 1
			m.errs = []error{errors.New("reset")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockCompleter()
			tt.setup(mock)

			got := NewCoach(mock, nil).NextQuestion(context.Background(), questionRequest())
			if got != FallbackQuestion(types.LanguageEN) {
				t.Errorf("question = %q, want fallback", got)
			}
		})
	}
}

func TestStreamQuestion_YieldsIncrements(t *testing.T) {
	mock := newMockCompleter()
	mock.chunks = []string{"What ", "stops ", "you?"}
	c := NewCoach(mock, nil)

	var parts []string
	for delta, err := range c.StreamQuestion(context.Background(), questionRequest()) {
		if err != nil {
			t.Fatalf("StreamQuestion() error = %v", err)
		}
		parts = append(parts, delta)
	}

	if strings.Join(parts, "") != "What stops you?" || len(parts) != 3 {
		t.Errorf("parts = %q, want three increments", parts)
	}
}

func TestStreamQuestion_FallbackWhenNothingEmitted(t *testing.T) {
	mock := newMockCompleter()
	mock.errs = []error{errors.New("unavailable")}
	c := NewCoach(mock, nil)

	var parts []string
	for delta, err := range c.StreamQuestion(context.Background(), questionRequest()) {
		if err != nil {
			t.Fatalf("StreamQuestion() error = %v, want the fallback instead", err)
		}
		parts = append(parts, delta)
	}

	if len(parts) != 1 || parts[0] != FallbackQuestion(types.LanguageEN) {
		t.Errorf("parts = %q, want only the fallback question", parts)
	}
}

func TestStreamQuestion_InterruptedAfterPartialOutput(t *testing.T) {
	mock := newMockCompleter()
	mock.chunks = []string{"What ", "stops"}
	mock.streamErrAfter = 1
	mock.errs = []error{errors.New("reset")}
	c := NewCoach(mock, nil)

	var parts []string
	var streamErr error
	for delta, err := range c.StreamQuestion(context.Background(), questionRequest()) {
		if err != nil {
			streamErr = err
			continue
		}
		parts = append(parts, delta)
	}

	if len(parts) != 1 || parts[0] != "What " {
		t.Errorf("parts = %q, want only the emitted prefix", parts)
	}
	if !errors.Is(streamErr, ErrStreamInterrupted) {
		t.Errorf("error = %v, want ErrStreamInterrupted", streamErr)
	}
}

func TestStreamQuestion_StopsWhenConsumerBreaks(t *testing.T) {
	mock := newMockCompleter()
	mock.chunks = []string{"a", "b", "c"}
	c := NewCoach(mock, nil)

	n := 0
	for range c.StreamQuestion(context.Background(), questionRequest()) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("received %d increments, want 1", n)
	}
}

func TestFinalEvaluation_ParsesResult(t *testing.T) {
	mock := newMockCompleter(`{"reasoning": "steady", "summary": "A solid habit.", "score": {"impact": 72, "ability": 85}}`)
	c := NewCoach(mock, nil)

	got := c.FinalEvaluation(context.Background(), FinalRequest{
		Behavior: "Read one page",
		Vision:   "Read more books",
		History:  []types.ChatEntry{{Role: types.RoleAI, Content: "Q"}, {Role: types.RoleUser, Content: "A"}},
		Language: types.LanguageEN,
	})

	if got.Summary != "A solid habit." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if got.Score != (types.RationalScore{Impact: 72, Ability: 85}) {
		t.Errorf("Score = %+v, want 72/85", got.Score)
	}

	call := mock.lastCall()
	if call.mode != llm.ModeJSON {
		t.Errorf("mode = %v, want json", call.mode)
	}
	if len(call.conversation) != 3 || call.conversation[2].Role != llm.RoleUser {
		t.Errorf("conversation = %+v, want history plus final request", call.conversation)
	}
}

func TestFinalEvaluation_ReasoningOptional(t *testing.T) {
	mock := newMockCompleter(`{"summary": "Fine.", "score": {"impact": 40, "ability": 90}}`)

	got := NewCoach(mock, nil).FinalEvaluation(context.Background(), FinalRequest{Language: types.LanguageEN})

	if got.Summary != "Fine." {
		t.Errorf("Summary = %q, want %q", got.Summary, "Fine.")
	}
}

func TestFinalEvaluation_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "transport", err: errors.New("boom")},
		{name: "missing score", response: `{"summary": "x"}`},
		{name: "empty summary", response: `{"summary": "", "score": {"impact": 50, "ability": 50}}`},
		{name: "score out of range", response: `{"summary": "x", "score": {"impact": -1, "ability": 50}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockCompleter(tt.response)
			if tt.err != nil {
				mock.errs = []error{tt.err}
			}
			got := NewCoach(mock, nil).FinalEvaluation(context.Background(), FinalRequest{Language: types.LanguageEN})
			want := FinalFallback(types.LanguageEN)
			if got != want {
				t.Errorf("got %+v, want fallback %+v", got, want)
			}
			if got.Score != (types.RationalScore{Impact: 60, Ability: 60}) {
				t.Errorf("fallback score = %+v, want 60/60", got.Score)
			}
		})
	}
}
