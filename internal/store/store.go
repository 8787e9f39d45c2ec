package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperengineering/tinyleap/internal/types"
)

// WorkshopStore persists whole workshop documents. Saves replace the
// document and are last-writer-wins.
type WorkshopStore interface {
	// List returns every workshop, most recently updated first.
	List(ctx context.Context) ([]types.WorkshopSummary, error)
	Get(ctx context.Context, id string) (*types.Workshop, error)
	Create(ctx context.Context, vision string) (*types.Workshop, error)
	// Delete succeeds whether or not the workshop exists.
	Delete(ctx context.Context, id string) error
	// Save replaces vision, behaviors and sopData of an existing workshop.
	Save(ctx context.Context, w *types.Workshop) (*types.Workshop, error)
}

// CredentialStore holds the single workshop password hash.
type CredentialStore interface {
	// PasswordHash returns ErrNotFound when no password has been set.
	PasswordHash(ctx context.Context) (string, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

// Store is a complete storage backend.
type Store interface {
	WorkshopStore
	CredentialStore
	Close() error
}

// Latest returns the most recently updated workshop, creating an empty one
// when the store holds none.
func Latest(ctx context.Context, s WorkshopStore) (*types.Workshop, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	if len(list) > 0 {
		w, err := s.Get(ctx, list[0].ID)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return s.Create(ctx, "")
}
