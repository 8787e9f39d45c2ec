// Package quadrant classifies behaviors on the Impact×Ability canvas and
// selects the SOP input from a workshop's behaviors.
package quadrant

import (
	"errors"
	"slices"

	"github.com/hyperengineering/tinyleap/internal/types"
)

// ErrNothingQualifies is returned when no behavior is golden or a core challenge.
var ErrNothingQualifies = errors.New("no golden or challenge behaviors to build an SOP from")

// Category is the quadrant of an active score.
type Category string

const (
	Golden    Category = "golden"
	Challenge Category = "challenge"
	QuickWin  Category = "quick_win"
	Low       Category = "low"
)

// Classify places a score in its quadrant. Scores on the threshold count as high.
func Classify(score types.RationalScore) Category {
	highImpact := score.Impact >= types.GoldenThreshold
	highAbility := score.Ability >= types.GoldenThreshold
	switch {
	case highImpact && highAbility:
		return Golden
	case highImpact:
		return Challenge
	case highAbility:
		return QuickWin
	default:
		return Low
	}
}

// Selection is one behavior chosen for the SOP.
type Selection struct {
	Behavior types.Behavior
	Type     types.BehaviorType
	Score    types.RationalScore
}

// Select keeps golden and challenge behaviors, ordered by descending impact.
// Ties keep their workshop order.
func Select(behaviors []types.Behavior) []Selection {
	out := make([]Selection, 0, len(behaviors))
	for _, b := range behaviors {
		score := b.ActiveScore()
		var typ types.BehaviorType
		switch Classify(score) {
		case Golden:
			typ = types.BehaviorGolden
		case Challenge:
			typ = types.BehaviorChallenge
		default:
			continue
		}
		out = append(out, Selection{Behavior: b, Type: typ, Score: score})
	}
	slices.SortStableFunc(out, func(a, b Selection) int {
		switch {
		case a.Score.Impact > b.Score.Impact:
			return -1
		case a.Score.Impact < b.Score.Impact:
			return 1
		default:
			return 0
		}
	})
	return out
}

// SOPInput builds the SOP Writer input for a workshop's behaviors.
// It returns ErrNothingQualifies when the selection is empty.
func SOPInput(behaviors []types.Behavior) ([]types.SOPItem, error) {
	selected := Select(behaviors)
	if len(selected) == 0 {
		return nil, ErrNothingQualifies
	}
	items := make([]types.SOPItem, len(selected))
	for i, s := range selected {
		items[i] = types.SOPItem{Text: s.Behavior.Text, Type: s.Type}
	}
	return items, nil
}
