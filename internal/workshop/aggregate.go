package workshop

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperengineering/tinyleap/internal/types"
)

var (
	ErrBehaviorNotFound = errors.New("behavior not found")
	ErrEmptyText        = errors.New("behavior text is required")
	// ErrSOPUnavailable is returned when the SOP Writer produced no document.
	ErrSOPUnavailable = errors.New("sop generation unavailable")
)

// defaultPosition is where new user behaviors land on the canvas.
var defaultPosition = types.Position{X: 50, Y: 50}

// NewBehavior builds an unevaluated behavior with a random color and tilt.
func NewBehavior(text string, source types.Source, pos types.Position) types.Behavior {
	b := types.Behavior{
		ID:                uuid.NewString(),
		Text:              strings.TrimSpace(text),
		Color:             types.BehaviorColors[rand.IntN(len(types.BehaviorColors))],
		IntuitivePosition: clampPosition(pos),
		Rotation:          rand.Float64()*4 - 2,
		Source:            source,
	}
	b.RefreshGolden()
	return b
}

// AddBehavior appends a user behavior at the center of the canvas.
func AddBehavior(w *types.Workshop, text string) (types.Behavior, error) {
	if strings.TrimSpace(text) == "" {
		return types.Behavior{}, ErrEmptyText
	}
	b := NewBehavior(text, types.SourceUser, defaultPosition)
	w.Behaviors = append(w.Behaviors, b)
	return b, nil
}

// AddGenerated appends Designer proposals placed at their estimated scores.
func AddGenerated(w *types.Workshop, items []types.GeneratedBehavior) []types.Behavior {
	added := make([]types.Behavior, 0, len(items))
	for _, item := range items {
		b := NewBehavior(item.Text, types.SourceAI, types.Position{X: item.Ability, Y: item.Impact})
		w.Behaviors = append(w.Behaviors, b)
		added = append(added, b)
	}
	return added
}

// Texts returns the text of every behavior in order.
func Texts(w *types.Workshop) []string {
	texts := make([]string, len(w.Behaviors))
	for i, b := range w.Behaviors {
		texts[i] = b.Text
	}
	return texts
}

// Move repositions a behavior. An evaluated behavior keeps its evaluated
// status and takes the new coordinates as its rational score; otherwise the
// intuitive position moves.
func Move(b *types.Behavior, pos types.Position) {
	pos = clampPosition(pos)
	if b.IsEvaluated {
		b.RationalScore = &types.RationalScore{Impact: pos.Y, Ability: pos.X}
	} else {
		b.IntuitivePosition = pos
	}
	b.RefreshGolden()
}

// EditText replaces the text and discards every judgment made on the old one.
func EditText(b *types.Behavior, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	b.Text = text
	b.IsEvaluated = false
	b.RationalScore = nil
	b.AiEvaluation = nil
	b.RefreshGolden()
	return nil
}

// Find returns a pointer to the behavior with the given id.
func Find(w *types.Workshop, id string) (*types.Behavior, error) {
	i := w.FindBehavior(id)
	if i < 0 {
		return nil, ErrBehaviorNotFound
	}
	return &w.Behaviors[i], nil
}

// Remove deletes the behavior with the given id.
func Remove(w *types.Workshop, id string) error {
	i := w.FindBehavior(id)
	if i < 0 {
		return ErrBehaviorNotFound
	}
	w.Behaviors = append(w.Behaviors[:i], w.Behaviors[i+1:]...)
	return nil
}

// Clear empties the vision, behaviors and SOP.
func Clear(w *types.Workshop) {
	w.Vision = ""
	w.Behaviors = []types.Behavior{}
	w.SOPData = nil
}

func clampPosition(p types.Position) types.Position {
	return types.Position{X: clamp(p.X), Y: clamp(p.Y)}
}

func clamp(v float64) float64 {
	return min(max(v, 0), 100)
}
