package evaluation

import (
	"context"
	"log/slog"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

// BehaviorValidator judges a behavior.
type BehaviorValidator interface {
	Validate(ctx context.Context, behaviorText, vision string, lang types.Language) types.ValidationResult
}

// BehaviorCoach asks diagnostic questions and concludes the dialogue.
type BehaviorCoach interface {
	NextQuestion(ctx context.Context, req agent.QuestionRequest) string
	FinalEvaluation(ctx context.Context, req agent.FinalRequest) types.FinalEvaluation
}

// BehaviorStore reads and updates single behaviors of a workshop.
// Implemented by workshop.Service.
type BehaviorStore interface {
	Behavior(ctx context.Context, workshopID, behaviorID string) (types.Behavior, string, error)
	UpdateBehavior(ctx context.Context, workshopID, behaviorID string, fn func(b *types.Behavior) error) (types.Behavior, error)
}

// Manager runs evaluation sessions. Only one action per behavior runs at a
// time; a concurrent action fails with ErrBusy. Agent calls run without the
// workshop lock, and their results are discarded with ErrStale when the
// behavior changed in the meantime.
//
// Once an action holds the session it no longer follows the caller's
// cancellation: agent calls are bounded by the gateway timeout, and their
// result is committed even when the client has disconnected.
type Manager struct {
	behaviors BehaviorStore
	validator BehaviorValidator
	coach     BehaviorCoach
	metrics   *metrics.Metrics
	sessions  workshop.KeyedMutex
}

// NewManager creates a Manager. m may be nil.
func NewManager(behaviors BehaviorStore, validator BehaviorValidator, coach BehaviorCoach, m *metrics.Metrics) *Manager {
	return &Manager{behaviors: behaviors, validator: validator, coach: coach, metrics: m}
}

// Ref identifies the behavior a session belongs to.
type Ref struct {
	WorkshopID string
	BehaviorID string
}

func (r Ref) key() string {
	return r.WorkshopID + "/" + r.BehaviorID
}

func (m *Manager) acquire(ref Ref) (func(), error) {
	unlock, ok := m.sessions.TryLock(ref.key())
	if !ok {
		return nil, ErrBusy
	}
	return unlock, nil
}

// View returns the current session state.
func (m *Manager) View(ctx context.Context, ref Ref) (View, error) {
	b, _, err := m.behaviors.Behavior(ctx, ref.WorkshopID, ref.BehaviorID)
	if err != nil {
		return View{}, err
	}
	return NewView(b), nil
}

// Check runs the validator unless a verdict is already cached.
func (m *Manager) Check(ctx context.Context, ref Ref, lang types.Language) (View, error) {
	unlock, err := m.acquire(ref)
	if err != nil {
		return View{}, err
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	b, vision, err := m.behaviors.Behavior(ctx, ref.WorkshopID, ref.BehaviorID)
	if err != nil {
		return View{}, err
	}
	b, err = m.ensureChecked(ctx, ref, b, vision, lang)
	if err != nil {
		return View{}, err
	}
	return NewView(b), nil
}

func (m *Manager) ensureChecked(ctx context.Context, ref Ref, b types.Behavior, vision string, lang types.Language) (types.Behavior, error) {
	if err := requireStep(&b, types.StepEvaluating); err != nil {
		return b, err
	}
	if b.AiEvaluation != nil && b.AiEvaluation.Suggestion != "" {
		return b, nil
	}

	result := m.validator.Validate(ctx, b.Text, vision, lang)

	updated, err := m.behaviors.UpdateBehavior(ctx, ref.WorkshopID, ref.BehaviorID, func(cur *types.Behavior) error {
		if cur.Text != b.Text || StepOf(cur) != types.StepEvaluating {
			return ErrStale
		}
		applyValidation(cur, result)
		return nil
	})
	if err != nil {
		return b, err
	}
	m.metrics.Transition(string(ActionCheck), string(types.StepEvaluating))
	return updated, nil
}

// StartChat opens the coaching dialogue, validating first when needed. Any
// earlier dialogue is discarded.
func (m *Manager) StartChat(ctx context.Context, ref Ref, lang types.Language) (View, error) {
	unlock, err := m.acquire(ref)
	if err != nil {
		return View{}, err
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	b, vision, err := m.behaviors.Behavior(ctx, ref.WorkshopID, ref.BehaviorID)
	if err != nil {
		return View{}, err
	}
	if err := requireStep(&b, types.StepEvaluating, types.StepChatting); err != nil {
		return View{}, err
	}
	if StepOf(&b) == types.StepEvaluating {
		if b, err = m.ensureChecked(ctx, ref, b, vision, lang); err != nil {
			return View{}, err
		}
	}
	ev := b.AiEvaluation
	if !ev.IsBehavior {
		return View{}, ErrNotABehavior
	}

	opening := agent.OpeningMessage(b.Source, ev.Suggestion, lang)
	question := m.coach.NextQuestion(ctx, agent.QuestionRequest{
		Behavior: b.Text,
		Vision:   vision,
		History:  []types.ChatEntry{{Role: types.RoleAI, Content: opening}},
		Critique: ev.Suggestion,
		Language: lang,
	})

	updated, err := m.behaviors.UpdateBehavior(ctx, ref.WorkshopID, ref.BehaviorID, func(cur *types.Behavior) error {
		if cur.Text != b.Text || cur.AiEvaluation == nil || !cur.AiEvaluation.IsBehavior {
			return ErrStale
		}
		startChat(cur, opening, question)
		return nil
	})
	if err != nil {
		return View{}, err
	}

	m.metrics.Transition(string(ActionStartChat), string(types.StepChatting))
	slog.Debug("coaching started",
		"component", "evaluation",
		"workshop_id", ref.WorkshopID,
		"behavior_id", ref.BehaviorID,
		"source", b.Source,
	)
	return NewView(updated), nil
}

// Reply appends the user's answer. Below MaxQuestions AI turns the coach
// asks another question; otherwise the final evaluation is requested and the
// session moves to summary.
func (m *Manager) Reply(ctx context.Context, ref Ref, text string, lang types.Language) (View, error) {
	text, err := cleanReply(text)
	if err != nil {
		return View{}, err
	}
	unlock, err := m.acquire(ref)
	if err != nil {
		return View{}, err
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	b, vision, err := m.behaviors.Behavior(ctx, ref.WorkshopID, ref.BehaviorID)
	if err != nil {
		return View{}, err
	}
	if err := requireStep(&b, types.StepChatting); err != nil {
		return View{}, err
	}

	ev := b.AiEvaluation
	before := len(ev.ChatHistory)
	history := withReply(ev.ChatHistory, text)

	var apply func(cur *types.Behavior)
	next := types.StepChatting
	if needsFinal(history) {
		final := m.coach.FinalEvaluation(ctx, agent.FinalRequest{
			Behavior: b.Text,
			Vision:   vision,
			History:  history,
			Language: lang,
		})
		apply = func(cur *types.Behavior) { applyFinal(cur, history, final) }
		next = types.StepSummary
	} else {
		question := m.coach.NextQuestion(ctx, agent.QuestionRequest{
			Behavior: b.Text,
			Vision:   vision,
			History:  history,
			Critique: ev.Suggestion,
			Language: lang,
		})
		apply = func(cur *types.Behavior) { applyQuestion(cur, history, question) }
	}

	updated, err := m.behaviors.UpdateBehavior(ctx, ref.WorkshopID, ref.BehaviorID, func(cur *types.Behavior) error {
		if cur.Text != b.Text || StepOf(cur) != types.StepChatting || len(cur.AiEvaluation.ChatHistory) != before {
			return ErrStale
		}
		apply(cur)
		return nil
	})
	if err != nil {
		return View{}, err
	}

	m.metrics.Transition(string(ActionReply), string(next))
	return NewView(updated), nil
}

// AcceptPreliminary adopts the validator's estimate and completes the session.
func (m *Manager) AcceptPreliminary(ctx context.Context, ref Ref) (View, error) {
	return m.transition(ctx, ref, ActionAcceptPreliminary, acceptPreliminary)
}

// Confirm adopts the coach's final score.
func (m *Manager) Confirm(ctx context.Context, ref Ref) (View, error) {
	return m.transition(ctx, ref, ActionConfirm, confirm)
}

// verdictForgetter is implemented by validators that memoize verdicts.
type verdictForgetter interface {
	Forget(behaviorText string)
}

// Regenerate discards the session and returns to evaluating. Memoized
// verdicts for the behavior are dropped so the next check judges it afresh.
func (m *Manager) Regenerate(ctx context.Context, ref Ref) (View, error) {
	return m.transition(ctx, ref, ActionRegenerate, func(b *types.Behavior) error {
		if err := regenerate(b); err != nil {
			return err
		}
		if f, ok := m.validator.(verdictForgetter); ok {
			f.Forget(b.Text)
		}
		return nil
	})
}

func (m *Manager) transition(ctx context.Context, ref Ref, action Action, fn func(b *types.Behavior) error) (View, error) {
	unlock, err := m.acquire(ref)
	if err != nil {
		return View{}, err
	}
	defer unlock()

	updated, err := m.behaviors.UpdateBehavior(ctx, ref.WorkshopID, ref.BehaviorID, fn)
	if err != nil {
		return View{}, err
	}
	view := NewView(updated)
	m.metrics.Transition(string(action), string(view.Step))
	return view, nil
}
