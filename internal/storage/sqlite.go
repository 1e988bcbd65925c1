package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/drift"
	"github.com/hyperjump/diachron/internal/space"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transforms (
		cache_key TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		shared_words INTEGER NOT NULL,
		residual REAL NOT NULL,
		matrix BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transforms_pair ON transforms(source_id, reference_id);

	CREATE TABLE IF NOT EXISTS drift_frames (
		id TEXT PRIMARY KEY,
		baseword TEXT NOT NULL,
		periods TEXT NOT NULL,
		neighbors INTEGER NOT NULL,
		frame TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_frames_created_at ON drift_frames(created_at);
	CREATE INDEX IF NOT EXISTS idx_frames_baseword ON drift_frames(baseword);
	`
	_, err := db.Exec(schema)
	return err
}

// GetTransform returns the transform stored under key.
func (s *SQLiteStore) GetTransform(ctx context.Context, key string) (*align.Transform, bool, error) {
	var (
		sourceID, referenceID string
		dim, shared           int
		residual              float64
		blob                  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, reference_id, dimension, shared_words, residual, matrix
		 FROM transforms WHERE cache_key = ?`, key,
	).Scan(&sourceID, &referenceID, &dim, &shared, &residual, &blob)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if len(blob) != dim*dim*8 {
		return nil, false, fmt.Errorf("transform %s: matrix has %d bytes, expected %d", key, len(blob), dim*dim*8)
	}
	data := make([]float64, dim*dim)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	tr, err := align.NewTransform(sourceID, referenceID, dim, data)
	if err != nil {
		return nil, false, err
	}
	tr.SharedWords = shared
	tr.Residual = residual
	return tr, true, nil
}

// PutTransform stores t under key, replacing any previous entry.
func (s *SQLiteStore) PutTransform(ctx context.Context, key string, t *align.Transform) error {
	raw := t.Raw()
	blob := make([]byte, len(raw)*8)
	for i, v := range raw {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transforms
		 (cache_key, source_id, reference_id, dimension, shared_words, residual, matrix, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key, t.SourceID, t.ReferenceID, t.Dimension(), t.SharedWords, t.Residual, blob, time.Now(),
	)
	return err
}

// SaveFrame stores frame under a new id.
func (s *SQLiteStore) SaveFrame(ctx context.Context, frame *drift.Frame, periods []string, neighbors int) (*StoredFrame, error) {
	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	periodsJSON, err := json.Marshal(periods)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal periods: %w", err)
	}

	stored := &StoredFrame{
		ID:        uuid.New().String(),
		Baseword:  frame.Baseword,
		Periods:   periods,
		Neighbors: neighbors,
		Frame:     frame,
		CreatedAt: time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drift_frames (id, baseword, periods, neighbors, frame, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Baseword, string(periodsJSON), neighbors, string(frameJSON), stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetFrame returns a stored frame by id.
func (s *SQLiteStore) GetFrame(ctx context.Context, id string) (*StoredFrame, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, baseword, periods, neighbors, frame, created_at
		 FROM drift_frames WHERE id = ?`, id)
	stored, err := scanFrame(row)
	if err == sql.ErrNoRows {
		return nil, space.NewNotFoundError("drift frame "+id, err)
	}
	return stored, err
}

// ListFrames returns stored frames, newest first.
func (s *SQLiteStore) ListFrames(ctx context.Context, offset, limit int) ([]*StoredFrame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, baseword, periods, neighbors, frame, created_at
		 FROM drift_frames ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*StoredFrame
	for rows.Next() {
		stored, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		frames = append(frames, stored)
	}
	return frames, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFrame(row scanner) (*StoredFrame, error) {
	var stored StoredFrame
	var periodsJSON, frameJSON string
	if err := row.Scan(&stored.ID, &stored.Baseword, &periodsJSON, &stored.Neighbors, &frameJSON, &stored.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(periodsJSON), &stored.Periods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal periods: %w", err)
	}
	stored.Frame = &drift.Frame{}
	if err := json.Unmarshal([]byte(frameJSON), stored.Frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	return &stored, nil
}

// CountTransforms returns the number of cached transforms.
func (s *SQLiteStore) CountTransforms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transforms`).Scan(&count)
	return count, err
}

// CountFrames returns the number of stored drift frames.
func (s *SQLiteStore) CountFrames(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drift_frames`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
