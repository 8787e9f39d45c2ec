// Package workshop holds the Workshop aggregate mutations and the service
// that applies them one writer at a time per workshop.
package workshop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/quadrant"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// BehaviorDesigner proposes behaviors for a vision.
type BehaviorDesigner interface {
	Generate(ctx context.Context, vision string, lang types.Language, excludeTexts []string) []types.GeneratedBehavior
}

// SOPGenerator writes an SOP for selected behaviors. It returns nil on failure.
type SOPGenerator interface {
	Generate(ctx context.Context, vision string, items []types.SOPItem, lang types.Language) *types.SOPData
}

// Service serializes mutations per workshop. Agent calls run outside the
// lock; their results are applied in a separate locked update.
type Service struct {
	store    store.WorkshopStore
	designer BehaviorDesigner
	writer   SOPGenerator
	locks    KeyedMutex
}

// NewService creates a Service.
func NewService(s store.WorkshopStore, designer BehaviorDesigner, writer SOPGenerator) *Service {
	return &Service{store: s, designer: designer, writer: writer}
}

// Get returns a workshop.
func (s *Service) Get(ctx context.Context, id string) (*types.Workshop, error) {
	return s.store.Get(ctx, id)
}

// Update loads the workshop, applies fn and saves the result while holding
// the workshop's lock. Nothing is saved when fn fails.
func (s *Service) Update(ctx context.Context, id string, fn func(w *types.Workshop) error) (*types.Workshop, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	saved, err := s.store.Save(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("save workshop: %w", err)
	}
	return saved, nil
}

// UpdateBehavior applies fn to one behavior of a workshop under the workshop lock.
func (s *Service) UpdateBehavior(ctx context.Context, workshopID, behaviorID string, fn func(b *types.Behavior) error) (types.Behavior, error) {
	var updated types.Behavior
	_, err := s.Update(ctx, workshopID, func(w *types.Workshop) error {
		b, err := Find(w, behaviorID)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
		updated = b.Clone()
		return nil
	})
	return updated, err
}

// Behavior returns a copy of one behavior and the workshop vision.
func (s *Service) Behavior(ctx context.Context, workshopID, behaviorID string) (types.Behavior, string, error) {
	w, err := s.store.Get(ctx, workshopID)
	if err != nil {
		return types.Behavior{}, "", err
	}
	b, err := Find(w, behaviorID)
	if err != nil {
		return types.Behavior{}, "", err
	}
	return b.Clone(), w.Vision, nil
}

// AddBehavior adds a user-authored behavior.
func (s *Service) AddBehavior(ctx context.Context, id, text string) (types.Behavior, error) {
	var added types.Behavior
	_, err := s.Update(ctx, id, func(w *types.Workshop) error {
		b, err := AddBehavior(w, text)
		added = b
		return err
	})
	return added, err
}

// GenerateBehaviors asks the Designer for new behaviors and adds those that
// do not repeat an existing behavior. An empty result is not an error. The
// result is saved even when the caller's context is cancelled mid-call.
func (s *Service) GenerateBehaviors(ctx context.Context, id string, lang types.Language) ([]types.Behavior, error) {
	ctx = context.WithoutCancel(ctx)
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	items := s.designer.Generate(ctx, w.Vision, lang, Texts(w))
	if len(items) == 0 {
		return []types.Behavior{}, nil
	}

	var added []types.Behavior
	_, err = s.Update(ctx, id, func(w *types.Workshop) error {
		// Behaviors may have changed while the Designer ran.
		added = AddGenerated(w, agent.FilterDuplicates(items, Texts(w)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("behaviors generated",
		"component", "workshop",
		"workshop_id", id,
		"proposed", len(items),
		"added", len(added),
	)
	return added, nil
}

// MoveBehavior repositions a behavior on the canvas.
func (s *Service) MoveBehavior(ctx context.Context, id, behaviorID string, pos types.Position) (types.Behavior, error) {
	return s.UpdateBehavior(ctx, id, behaviorID, func(b *types.Behavior) error {
		Move(b, pos)
		return nil
	})
}

// EditText changes a behavior's text and resets its evaluation.
func (s *Service) EditText(ctx context.Context, id, behaviorID, text string) (types.Behavior, error) {
	return s.UpdateBehavior(ctx, id, behaviorID, func(b *types.Behavior) error {
		return EditText(b, text)
	})
}

// DeleteBehavior removes a behavior.
func (s *Service) DeleteBehavior(ctx context.Context, id, behaviorID string) error {
	_, err := s.Update(ctx, id, func(w *types.Workshop) error {
		return Remove(w, behaviorID)
	})
	return err
}

// SetVision replaces the workshop vision.
func (s *Service) SetVision(ctx context.Context, id, vision string) (*types.Workshop, error) {
	return s.Update(ctx, id, func(w *types.Workshop) error {
		w.Vision = vision
		return nil
	})
}

// Clear empties the workshop.
func (s *Service) Clear(ctx context.Context, id string) (*types.Workshop, error) {
	return s.Update(ctx, id, func(w *types.Workshop) error {
		Clear(w)
		return nil
	})
}

// Replace overwrites the workshop content, as the whole-document save does.
func (s *Service) Replace(ctx context.Context, id string, content types.WorkshopContent) (*types.Workshop, error) {
	return s.Update(ctx, id, func(w *types.Workshop) error {
		w.Vision = content.Vision
		w.Behaviors = content.Behaviors
		if w.Behaviors == nil {
			w.Behaviors = []types.Behavior{}
		}
		for i := range w.Behaviors {
			w.Behaviors[i].RefreshGolden()
		}
		w.SOPData = content.SOPData
		return nil
	})
}

// GenerateSOP builds the SOP from the golden and challenge behaviors and
// replaces any previous one. It returns quadrant.ErrNothingQualifies without
// calling the writer when no behavior qualifies, and ErrSOPUnavailable when
// the writer fails; the stored SOP is untouched in both cases. Like
// GenerateBehaviors it does not follow the caller's cancellation.
func (s *Service) GenerateSOP(ctx context.Context, id string, lang types.Language) (*types.SOPData, error) {
	ctx = context.WithoutCancel(ctx)
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := quadrant.SOPInput(w.Behaviors)
	if err != nil {
		return nil, err
	}

	sop := s.writer.Generate(ctx, w.Vision, items, lang)
	if sop == nil {
		return nil, ErrSOPUnavailable
	}

	if _, err := s.Update(ctx, id, func(w *types.Workshop) error {
		w.SOPData = sop
		return nil
	}); err != nil {
		return nil, err
	}

	slog.Info("sop generated",
		"component", "workshop",
		"workshop_id", id,
		"sections", len(sop.Sections),
	)
	return sop, nil
}

// IsNotFound reports whether err means the workshop or behavior does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrBehaviorNotFound)
}
