package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/types"
)

const validVerdict = `{"isBehavior": true, "suggestion": "Good anchor.", "scores": {"actionable": 9, "specific": 8, "tiny": 7, "relevance": 9}, "rationalScore": {"impact": 75, "ability": 80}}`

func TestValidate_ParsesVerdict(t *testing.T) {
	mock := newMockCompleter(validVerdict)
	v := NewValidator(mock, nil)

	got := v.Validate(context.Background(), "Open the laptop", "Be healthier", types.LanguageEN)

	if !got.IsBehavior {
		t.Error("expected IsBehavior to be true")
	}
	if got.Suggestion != "Good anchor." {
		t.Errorf("Suggestion = %q, want %q", got.Suggestion, "Good anchor.")
	}
	if got.Scores.Tiny != 7 {
		t.Errorf("Scores.Tiny = %v, want 7", got.Scores.Tiny)
	}
	if got.RationalScore == nil || got.RationalScore.Impact != 75 || got.RationalScore.Ability != 80 {
		t.Errorf("RationalScore = %+v, want 75/80", got.RationalScore)
	}

	call := mock.lastCall()
	if call.mode != llm.ModeJSON {
		t.Errorf("mode = %v, want json", call.mode)
	}
	if !strings.Contains(call.system, "Be healthier") {
		t.Error("system prompt should carry the vision")
	}
	if !strings.Contains(call.system, "English") {
		t.Error("system prompt should request English output")
	}
	if len(call.conversation) != 1 || !strings.Contains(call.conversation[0].Content, "Open the laptop") {
		t.Errorf("conversation = %+v, want single request naming the behavior", call.conversation)
	}
}

func TestValidate_RationalScoreOptional(t *testing.T) {
	mock := newMockCompleter(`{"isBehavior": false, "suggestion": "Too vague.", "scores": {"actionable": 2, "specific": 1, "tiny": 3, "relevance": 5}}`)
	v := NewValidator(mock, nil)

	got := v.Validate(context.Background(), "Be better", "Be healthier", types.LanguageEN)

	if got.IsBehavior {
		t.Error("expected IsBehavior to be false")
	}
	if got.RationalScore != nil {
		t.Errorf("RationalScore = %+v, want nil", got.RationalScore)
	}
}

func TestValidate_RepairsSloppyJSON(t *testing.T) {
	mock := newMockCompleter("```json\n{'isBehavior': true, 'suggestion': 'ok', 'scores': {'actionable': 9, 'specific': 9, 'tiny': 9, 'relevance': 9},}\n```")
	v := NewValidator(mock, nil)

	got := v.Validate(context.Background(), "Drink water", "Be healthier", types.LanguageEN)

	if got.Suggestion != "ok" {
		t.Errorf("Suggestion = %q, want %q (repaired output)", got.Suggestion, "ok")
	}
}

func TestValidate_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "missing suggestion", response: `{"isBehavior": true, "scores": {"actionable": 9, "specific": 9, "tiny": 9, "relevance": 9}}`},
		{name: "missing scores", response: `{"isBehavior": true, "suggestion": "x"}`},
		{name: "score out of range", response: `{"isBehavior": true, "suggestion": "x", "scores": {"actionable": 11, "specific": 9, "tiny": 9, "relevance": 9}}`},
		{name: "rational score out of range", response: `{"isBehavior": true, "suggestion": "x", "scores": {"actionable": 9, "specific": 9, "tiny": 9, "relevance": 9}, "rationalScore": {"impact": 120, "ability": 5}}`},
		{name: "not json", response: "I think this is fine."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockCompleter(tt.response)
			if tt.err != nil {
				mock.errs = []error{tt.err}
			}
			v := NewValidator(mock, nil)

			got := v.Validate(context.Background(), "Drink water", "Be healthier", types.LanguageEN)
			want := ValidatorFallback(types.LanguageEN)

			if got.IsBehavior != want.IsBehavior || got.Suggestion != want.Suggestion || got.Scores != want.Scores {
				t.Errorf("got %+v, want fallback %+v", got, want)
			}
		})
	}
}

func TestValidatorFallback_PassesWithNeutralScores(t *testing.T) {
	got := ValidatorFallback(types.LanguageZH)

	if !got.IsBehavior {
		t.Error("fallback must pass the behavior")
	}
	want := types.RubricScores{Actionable: 8, Specific: 8, Tiny: 8, Relevance: 8}
	if got.Scores != want {
		t.Errorf("Scores = %+v, want %+v", got.Scores, want)
	}
	if got.Suggestion == ValidatorFallback(types.LanguageEN).Suggestion {
		t.Error("fallback suggestion should be localized")
	}
}

func TestJudge_ReturnsError(t *testing.T) {
	mock := newMockCompleter(`{"isBehavior": true}`)
	v := NewValidator(mock, nil)

	_, err := v.Judge(context.Background(), "Drink water", "Be healthier", types.LanguageEN)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("error = %v, want ErrSchemaViolation", err)
	}
}
