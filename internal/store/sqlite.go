package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const settingPasswordHash = "password_hash"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the SQLite-backed workshop database. Behaviors and SOP data
// are stored as JSON documents alongside the workshop row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List returns workshop summaries, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]types.WorkshopSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vision, created_at, updated_at
		FROM workshops
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query workshops: %w", err)
	}
	defer rows.Close()

	list := []types.WorkshopSummary{}
	for rows.Next() {
		var summary types.WorkshopSummary
		var createdAt, updatedAt string
		if err := rows.Scan(&summary.ID, &summary.Vision, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		summary.CreatedAt = parseTime(createdAt)
		summary.UpdatedAt = parseTime(updatedAt)
		list = append(list, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return list, nil
}

// Get retrieves a workshop by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Workshop, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vision, behaviors, sop_data, created_at, updated_at
		FROM workshops
		WHERE id = ?
	`, id)

	w, err := scanWorkshop(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	return w, nil
}

// Create stores a new workshop with no behaviors.
func (s *SQLiteStore) Create(ctx context.Context, vision string) (*types.Workshop, error) {
	now := time.Now().UTC()
	w := &types.Workshop{
		ID:        ulid.Make().String(),
		Vision:    vision,
		Behaviors: []types.Behavior{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workshops (id, vision, behaviors, sop_data, created_at, updated_at)
		VALUES (?, ?, '[]', NULL, ?, ?)
	`, w.ID, w.Vision, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert workshop: %w", err)
	}

	return w, nil
}

// Delete removes a workshop. Deleting a missing workshop is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workshops WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete workshop: %w", err)
	}
	return nil
}

// Save replaces the content of an existing workshop and bumps updated_at.
func (s *SQLiteStore) Save(ctx context.Context, w *types.Workshop) (*types.Workshop, error) {
	behaviors := w.Behaviors
	if behaviors == nil {
		behaviors = []types.Behavior{}
	}
	behaviorsJSON, err := json.Marshal(behaviors)
	if err != nil {
		return nil, fmt.Errorf("marshal behaviors: %w", err)
	}
	var sopJSON sql.NullString
	if w.SOPData != nil {
		b, err := json.Marshal(w.SOPData)
		if err != nil {
			return nil, fmt.Errorf("marshal sop data: %w", err)
		}
		sopJSON = sql.NullString{String: string(b), Valid: true}
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE workshops
		SET vision = ?, behaviors = ?, sop_data = ?, updated_at = ?
		WHERE id = ?
	`, w.Vision, string(behaviorsJSON), sopJSON, now.Format(timeLayout), w.ID)
	if err != nil {
		return nil, fmt.Errorf("update workshop: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, w.ID)
}

// PasswordHash returns the stored password hash.
func (s *SQLiteStore) PasswordHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingPasswordHash).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query password: %w", err)
	}
	return hash, nil
}

// SetPasswordHash stores or replaces the password hash.
func (s *SQLiteStore) SetPasswordHash(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, settingPasswordHash, hash, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

// scanWorkshop scans a row into a Workshop, decoding the JSON documents.
func scanWorkshop(scanner interface{ Scan(...any) error }) (*types.Workshop, error) {
	var w types.Workshop
	var behaviorsJSON string
	var sopJSON sql.NullString
	var createdAt, updatedAt string

	if err := scanner.Scan(&w.ID, &w.Vision, &behaviorsJSON, &sopJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(behaviorsJSON), &w.Behaviors); err != nil {
		return nil, fmt.Errorf("parse behaviors JSON: %w", err)
	}
	if w.Behaviors == nil {
		w.Behaviors = []types.Behavior{}
	}
	if sopJSON.Valid && sopJSON.String != "" {
		var sop types.SOPData
		if err := json.Unmarshal([]byte(sopJSON.String), &sop); err != nil {
			return nil, fmt.Errorf("parse sop JSON: %w", err)
		}
		w.SOPData = &sop
	}
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)

	return &w, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
