package worker

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/types"
)

// minTick bounds how often the coalescer wakes up.
const minTick = 10 * time.Millisecond

var _ store.WorkshopStore = (*SaveCoalescer)(nil)

type pendingSave struct {
	workshop *types.Workshop
	due      time.Time
	version  uint64
}

// SaveCoalescer is a write-behind WorkshopStore. Saves are held for the
// debounce period and only the latest version of each workshop is written.
// Reads see pending saves, so callers never observe a stale document.
type SaveCoalescer struct {
	store    store.WorkshopStore
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
	version uint64

	// flushMu keeps two flushes from writing versions out of order.
	flushMu sync.Mutex
}

// NewSaveCoalescer wraps s. A debounce of zero writes every save through immediately.
func NewSaveCoalescer(s store.WorkshopStore, debounce time.Duration) *SaveCoalescer {
	return &SaveCoalescer{
		store:    s,
		debounce: debounce,
		pending:  make(map[string]*pendingSave),
	}
}

// Run flushes due saves until ctx is cancelled, then flushes everything
// still pending. It blocks until the final flush completes.
func (c *SaveCoalescer) Run(ctx context.Context) {
	tick := c.debounce / 2
	if tick < minTick {
		tick = minTick
	}
	slog.Info("save coalescer started",
		"component", "worker",
		"worker", "save-coalescer",
		"debounce", c.debounce.String(),
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n := c.Flush(flushCtx)
			cancel()
			slog.Info("save coalescer stopped",
				"component", "worker",
				"worker", "save-coalescer",
				"reason", "context_cancelled",
				"flushed", n,
			)
			return
		case now := <-ticker.C:
			c.flush(ctx, now)
		}
	}
}

// Flush writes every pending save now and returns how many were written.
func (c *SaveCoalescer) Flush(ctx context.Context) int {
	return c.flush(ctx, time.Time{})
}

// Pending returns the number of workshops with unwritten changes.
func (c *SaveCoalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// flush writes saves due at or before now. A zero now flushes everything.
func (c *SaveCoalescer) flush(ctx context.Context, now time.Time) int {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	type job struct {
		workshop *types.Workshop
		version  uint64
	}
	c.mu.Lock()
	var jobs []job
	for _, p := range c.pending {
		if now.IsZero() || !p.due.After(now) {
			jobs = append(jobs, job{workshop: p.workshop.Clone(), version: p.version})
		}
	}
	c.mu.Unlock()

	written := 0
	for _, j := range jobs {
		_, err := c.store.Save(ctx, j.workshop)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			// Left pending; retried on the next tick.
			slog.Error("failed to save workshop",
				"component", "worker",
				"worker", "save-coalescer",
				"workshop_id", j.workshop.ID,
				"error", err,
			)
			continue
		}
		if err != nil {
			slog.Warn("dropping save for deleted workshop",
				"component", "worker",
				"worker", "save-coalescer",
				"workshop_id", j.workshop.ID,
			)
		} else {
			written++
		}

		c.mu.Lock()
		if p, ok := c.pending[j.workshop.ID]; ok && p.version == j.version {
			delete(c.pending, j.workshop.ID)
		}
		c.mu.Unlock()
	}

	if written > 0 {
		slog.Debug("flushed workshop saves",
			"component", "worker",
			"worker", "save-coalescer",
			"count", written,
		)
	}
	return written
}

// List returns the stored workshops with pending visions applied.
func (c *SaveCoalescer) List(ctx context.Context) ([]types.WorkshopSummary, error) {
	list, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return list, nil
	}
	for i := range list {
		if p, ok := c.pending[list[i].ID]; ok {
			list[i].Vision = p.workshop.Vision
			list[i].UpdatedAt = p.workshop.UpdatedAt
		}
	}
	slices.SortStableFunc(list, func(a, b types.WorkshopSummary) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return list, nil
}

// Get returns the pending version of a workshop when there is one.
func (c *SaveCoalescer) Get(ctx context.Context, id string) (*types.Workshop, error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	var w *types.Workshop
	if ok {
		w = p.workshop.Clone()
	}
	c.mu.Unlock()

	if ok {
		return w, nil
	}
	return c.store.Get(ctx, id)
}

// Create writes through.
func (c *SaveCoalescer) Create(ctx context.Context, vision string) (*types.Workshop, error) {
	return c.store.Create(ctx, vision)
}

// Delete discards any pending save and deletes the workshop.
func (c *SaveCoalescer) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
	return c.store.Delete(ctx, id)
}

// Save queues w for writing. It returns ErrNotFound when the workshop does
// not exist.
func (c *SaveCoalescer) Save(ctx context.Context, w *types.Workshop) (*types.Workshop, error) {
	if c.debounce <= 0 {
		return c.store.Save(ctx, w)
	}

	c.mu.Lock()
	_, queued := c.pending[w.ID]
	c.mu.Unlock()
	if !queued {
		if _, err := c.store.Get(ctx, w.ID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	saved := w.Clone()
	saved.UpdatedAt = now

	c.mu.Lock()
	c.version++
	c.pending[w.ID] = &pendingSave{workshop: saved, due: now.Add(c.debounce), version: c.version}
	c.mu.Unlock()

	return saved.Clone(), nil
}
