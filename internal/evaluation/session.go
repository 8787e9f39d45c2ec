// Package evaluation runs the per-behavior evaluation session: validation,
// the coaching dialogue, the final evaluation and its confirmation.
package evaluation

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hyperengineering/tinyleap/internal/types"
)

// MaxQuestions is the number of AI turns, opening message included, after
// which the next user reply triggers the final evaluation.
const MaxQuestions = 6

var (
	ErrInvalidTransition = errors.New("action not allowed in current step")
	ErrNotABehavior      = errors.New("text was judged not to be a behavior; edit it first")
	ErrNoScore           = errors.New("no score to accept")
	ErrStale             = errors.New("behavior changed while the evaluation was running")
	ErrBusy              = errors.New("another evaluation action is in progress for this behavior")
	ErrEmptyReply        = errors.New("reply text is required")
)

// Action is a user action offered by a session step.
type Action string

const (
	ActionCheck             Action = "check"
	ActionStartChat         Action = "start_chat"
	ActionAcceptPreliminary Action = "accept_preliminary"
	ActionReply             Action = "reply"
	ActionConfirm           Action = "confirm"
	ActionRegenerate        Action = "regenerate"
)

// StepOf returns the session step of a behavior. Records written without a
// step are placed by their content.
func StepOf(b *types.Behavior) types.EvaluationStep {
	ev := b.AiEvaluation
	switch {
	case ev == nil:
		return types.StepEvaluating
	case ev.Step != "":
		return ev.Step
	case ev.IsComplete && b.IsEvaluated:
		return types.StepCompleted
	case ev.IsComplete:
		return types.StepSummary
	case len(ev.ChatHistory) > 0:
		return types.StepChatting
	default:
		return types.StepEvaluating
	}
}

// Actions lists what the user can do next.
func Actions(b *types.Behavior) []Action {
	ev := b.AiEvaluation
	switch StepOf(b) {
	case types.StepEvaluating:
		if ev == nil || ev.Suggestion == "" {
			return []Action{ActionCheck}
		}
		if !ev.IsBehavior {
			return []Action{}
		}
		actions := []Action{ActionStartChat}
		if ev.RationalScore != nil {
			actions = append(actions, ActionAcceptPreliminary)
		}
		return actions
	case types.StepChatting:
		return []Action{ActionReply, ActionRegenerate}
	case types.StepSummary:
		return []Action{ActionConfirm}
	case types.StepCompleted:
		return []Action{ActionRegenerate}
	}
	return []Action{}
}

// View is the state of one behavior's session.
type View struct {
	Behavior types.Behavior       `json:"behavior"`
	Step     types.EvaluationStep `json:"step"`
	// PreChatScore is the score the final evaluation is compared against.
	PreChatScore   types.RationalScore `json:"preChatScore"`
	QuestionsAsked int                 `json:"questionsAsked"`
	MaxQuestions   int                 `json:"maxQuestions"`
	Actions        []Action            `json:"actions"`
}

// NewView describes b.
func NewView(b types.Behavior) View {
	v := View{
		Behavior:     b,
		Step:         StepOf(&b),
		PreChatScore: b.ActiveScore(),
		MaxQuestions: MaxQuestions,
		Actions:      Actions(&b),
	}
	if ev := b.AiEvaluation; ev != nil {
		v.QuestionsAsked = ev.AITurns()
		if ev.RationalScore != nil {
			v.PreChatScore = *ev.RationalScore
		}
	}
	return v
}

func requireStep(b *types.Behavior, allowed ...types.EvaluationStep) error {
	step := StepOf(b)
	if !slices.Contains(allowed, step) {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, step)
	}
	return nil
}

// applyValidation stores a validator verdict on a fresh session.
func applyValidation(b *types.Behavior, result types.ValidationResult) {
	scores := result.Scores
	ev := &types.AiEvaluation{
		IsBehavior:  result.IsBehavior,
		Suggestion:  result.Suggestion,
		Scores:      &scores,
		ChatHistory: []types.ChatEntry{},
		Step:        types.StepEvaluating,
	}
	if result.RationalScore != nil {
		s := *result.RationalScore
		ev.RationalScore = &s
	}
	b.AiEvaluation = ev
}

// startChat replaces any earlier dialogue with the opening message and first question.
func startChat(b *types.Behavior, opening, question string) {
	ev := b.AiEvaluation
	ev.ChatHistory = []types.ChatEntry{
		{Role: types.RoleAI, Content: opening},
		{Role: types.RoleAI, Content: question},
	}
	ev.FinalSummary = ""
	ev.FinalScore = nil
	ev.IsComplete = false
	ev.Step = types.StepChatting
}

// withReply returns history with the user's reply appended.
func withReply(history []types.ChatEntry, reply string) []types.ChatEntry {
	out := make([]types.ChatEntry, len(history), len(history)+2)
	copy(out, history)
	return append(out, types.ChatEntry{Role: types.RoleUser, Content: reply})
}

// needsFinal reports whether the dialogue has reached MaxQuestions AI turns.
func needsFinal(history []types.ChatEntry) bool {
	n := 0
	for _, entry := range history {
		if entry.Role == types.RoleAI {
			n++
		}
	}
	return n >= MaxQuestions
}

func applyQuestion(b *types.Behavior, history []types.ChatEntry, question string) {
	b.AiEvaluation.ChatHistory = append(history, types.ChatEntry{Role: types.RoleAI, Content: question})
}

func applyFinal(b *types.Behavior, history []types.ChatEntry, final types.FinalEvaluation) {
	ev := b.AiEvaluation
	score := final.Score
	ev.ChatHistory = history
	ev.FinalSummary = final.Summary
	ev.FinalScore = &score
	ev.IsComplete = true
	ev.Step = types.StepSummary
}

// confirm adopts the final score as the behavior's rational score.
func confirm(b *types.Behavior) error {
	if err := requireStep(b, types.StepSummary); err != nil {
		return err
	}
	ev := b.AiEvaluation
	if ev.FinalScore == nil {
		return ErrNoScore
	}
	score := *ev.FinalScore
	b.RationalScore = &score
	b.IsEvaluated = true
	ev.IsComplete = true
	ev.Step = types.StepCompleted
	b.RefreshGolden()
	return nil
}

// acceptPreliminary adopts the validator's estimate without a dialogue.
// The session is completed but has no final summary, so IsComplete stays false.
func acceptPreliminary(b *types.Behavior) error {
	if err := requireStep(b, types.StepEvaluating); err != nil {
		return err
	}
	ev := b.AiEvaluation
	if ev == nil || !ev.IsBehavior {
		return ErrNotABehavior
	}
	if ev.RationalScore == nil {
		return ErrNoScore
	}
	score := *ev.RationalScore
	b.RationalScore = &score
	b.IsEvaluated = true
	ev.Step = types.StepCompleted
	b.RefreshGolden()
	return nil
}

// regenerate discards the session. A confirmed rational score stays in
// effect until a new session is confirmed.
func regenerate(b *types.Behavior) error {
	if err := requireStep(b, types.StepChatting, types.StepSummary, types.StepCompleted); err != nil {
		return err
	}
	b.AiEvaluation = &types.AiEvaluation{
		IsBehavior:  false,
		ChatHistory: []types.ChatEntry{},
		IsComplete:  false,
		Step:        types.StepEvaluating,
	}
	return nil
}

func cleanReply(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
