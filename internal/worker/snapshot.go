package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/tinyleap/internal/snapshot"
	"github.com/hyperengineering/tinyleap/internal/store"
)

// SnapshotWorker archives every workshop on an interval and uploads the
// archive when remote storage is configured.
type SnapshotWorker struct {
	store    store.WorkshopStore
	dir      string
	uploader snapshot.Uploader
	interval time.Duration
	now      func() time.Time
}

// NewSnapshotWorker creates a worker writing archives into dir. The
// uploader is optional; if nil, archives stay local.
func NewSnapshotWorker(s store.WorkshopStore, dir string, interval time.Duration, uploader snapshot.Uploader) *SnapshotWorker {
	return &SnapshotWorker{
		store:    s,
		dir:      dir,
		uploader: uploader,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the worker loop. Takes a snapshot immediately on start,
// then on each interval. Respects context cancellation for graceful shutdown.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "snapshot",
		"interval", w.interval.String(),
		"dir", w.dir,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "snapshot",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

// Snapshot writes one archive and uploads it. It returns the local path.
func (w *SnapshotWorker) Snapshot(ctx context.Context) (string, error) {
	archive, err := snapshot.Build(ctx, w.store, w.now())
	if err != nil {
		return "", err
	}
	path, err := snapshot.WriteFile(w.dir, archive)
	if err != nil {
		return "", err
	}

	slog.Info("snapshot written",
		"component", "worker",
		"action", "snapshot_written",
		"path", path,
		"workshops", len(archive.Workshops),
	)

	if w.uploader != nil {
		w.upload(ctx, path)
	}
	return path, nil
}

func (w *SnapshotWorker) snapshot(ctx context.Context) {
	if _, err := w.Snapshot(ctx); err != nil {
		// Check if it's a context cancellation (graceful shutdown)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("snapshot failed",
			"component", "worker",
			"action", "snapshot_failed",
			"error", err,
		)
	}
}

// upload failures are logged but not fatal; the local archive remains valid.
func (w *SnapshotWorker) upload(ctx context.Context, path string) {
	key, err := w.uploader.Upload(ctx, path)
	if err != nil {
		slog.Warn("snapshot upload failed",
			"component", "worker",
			"action", "snapshot_upload_failed",
			"path", path,
			"error", err,
		)
		return
	}
	if key != "" {
		slog.Info("snapshot uploaded",
			"component", "worker",
			"action", "snapshot_uploaded",
			"key", key,
		)
	}
}
