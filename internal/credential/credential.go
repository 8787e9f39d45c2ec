// Package credential implements the workshop password gate.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/hyperengineering/tinyleap/internal/store"
)

var (
	// ErrNotSet is returned by Verify when no password has been configured.
	ErrNotSet = errors.New("password not set")
	// ErrUnauthorized is returned for a wrong password or old password.
	ErrUnauthorized = errors.New("incorrect password")
	// ErrEmptyPassword is returned by Set for an empty new password.
	ErrEmptyPassword = errors.New("password is required")
)

// Service checks and changes the single workshop password.
type Service struct {
	store store.CredentialStore
	cost  int
}

// NewService creates a Service. A cost of 0 uses bcrypt.DefaultCost.
func NewService(s store.CredentialStore, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: s, cost: cost}
}

// Status reports whether a password has been set.
func (s *Service) Status(ctx context.Context) (bool, error) {
	_, err := s.store.PasswordHash(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load password: %w", err)
	}
}

// Verify checks password against the stored hash.
func (s *Service) Verify(ctx context.Context, password string) error {
	hash, err := s.store.PasswordHash(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotSet
		}
		return fmt.Errorf("load password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// Set stores a new password. When one already exists, oldPassword must match it.
func (s *Service) Set(ctx context.Context, password, oldPassword string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	set, err := s.Status(ctx)
	if err != nil {
		return err
	}
	if set {
		if err := s.Verify(ctx, oldPassword); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, string(hash)); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	slog.Info("password updated", "component", "credential", "replaced", set)
	return nil
}
