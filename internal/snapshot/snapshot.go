// Package snapshot archives every workshop as one JSON document and
// uploads archives to S3-compatible storage. When S3 is not configured
// (empty bucket), the NoopUploader is used and archives stay local.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// FormatVersion is written into every archive.
const FormatVersion = 1

// Archive is a point-in-time copy of every workshop.
type Archive struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	Workshops []*types.Workshop `json:"workshops"`
}

// Build reads every workshop from s. Workshops deleted while the archive
// is built are skipped.
func Build(ctx context.Context, s store.WorkshopStore, now time.Time) (*Archive, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}

	a := &Archive{
		Version:   FormatVersion,
		CreatedAt: now.UTC(),
		Workshops: make([]*types.Workshop, 0, len(list)),
	}
	for _, summary := range list {
		w, err := s.Get(ctx, summary.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get workshop %s: %w", summary.ID, err)
		}
		a.Workshops = append(a.Workshops, w)
	}
	return a, nil
}

// Write encodes a as indented JSON.
func Write(w io.Writer, a *Archive) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// FileName is the archive file name for a creation time.
func FileName(createdAt time.Time) string {
	return "workshops-" + createdAt.UTC().Format("20060102T150405Z") + ".json"
}

// WriteFile writes a into dir and returns the file path. The file appears
// complete or not at all.
func WriteFile(dir string, a *Archive) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".workshops-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, a); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	path := filepath.Join(dir, FileName(a.CreatedAt))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return path, nil
}
