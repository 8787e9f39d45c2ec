package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperengineering/tinyleap/internal/types"
)

func TestCachedValidator_ReusesVerdict(t *testing.T) {
	mock := newMockCompleter(validVerdict)
	cv := NewCachedValidator(NewValidator(mock, nil), 16, time.Minute)

	first := cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageEN)
	second := cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageEN)

	if mock.callCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.callCount())
	}
	if first.Suggestion != second.Suggestion {
		t.Errorf("cached verdict differs: %q vs %q", first.Suggestion, second.Suggestion)
	}
}

func TestCachedValidator_KeyIncludesLanguageAndVision(t *testing.T) {
	mock := newMockCompleter(validVerdict)
	cv := NewCachedValidator(NewValidator(mock, nil), 16, time.Minute)

	cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageEN)
	cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageZH)
	cv.Validate(context.Background(), "Open the laptop", "Sleep more", types.LanguageEN)

	if mock.callCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.callCount())
	}
}

func TestCachedValidator_DoesNotCacheFallback(t *testing.T) {
	mock := newMockCompleter()
	mock.errs = []error{errors.New("down")}
	cv := NewCachedValidator(NewValidator(mock, nil), 16, time.Minute)

	got := cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageEN)
	if got.Suggestion != ValidatorFallback(types.LanguageEN).Suggestion {
		t.Errorf("Suggestion = %q, want fallback", got.Suggestion)
	}

	mock.errs = nil
	mock.responses = []string{validVerdict}
	got = cv.Validate(context.Background(), "Open the laptop", "Ship more", types.LanguageEN)
	if got.Suggestion != "Good anchor." {
		t.Errorf("Suggestion = %q, want fresh verdict after failure", got.Suggestion)
	}
}

func TestCachedValidator_DisabledCache(t *testing.T) {
	mock := newMockCompleter(validVerdict)
	cv := NewCachedValidator(NewValidator(mock, nil), 0, time.Minute)

	cv.Validate(context.Background(), "a", "b", types.LanguageEN)
	cv.Validate(context.Background(), "a", "b", types.LanguageEN)

	if mock.callCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.callCount())
	}
}

func TestCachedValidator_ForgetDropsEveryVerdictForText(t *testing.T) {
	mock := newMockCompleter(validVerdict)
	cv := NewCachedValidator(NewValidator(mock, nil), 16, time.Minute)
	ctx := context.Background()

	cv.Validate(ctx, "Open the laptop", "Ship more", types.LanguageEN)
	cv.Validate(ctx, "Open the laptop", "Ship more", types.LanguageZH)
	cv.Validate(ctx, "Close the laptop", "Ship more", types.LanguageEN)

	cv.Forget("Open the laptop")

	cv.Validate(ctx, "Open the laptop", "Ship more", types.LanguageEN)
	cv.Validate(ctx, "Open the laptop", "Ship more", types.LanguageZH)
	if mock.callCount() != 5 {
		t.Errorf("calls = %d, want 5 after forgetting both languages", mock.callCount())
	}

	cv.Validate(ctx, "Close the laptop", "Ship more", types.LanguageEN)
	if mock.callCount() != 5 {
		t.Errorf("calls = %d, want other behaviors to stay cached", mock.callCount())
	}
}

func TestCachedValidator_ForgetWithCacheDisabled(t *testing.T) {
	cv := NewCachedValidator(NewValidator(newMockCompleter(validVerdict), nil), 0, time.Minute)
	cv.Forget("anything")
}
