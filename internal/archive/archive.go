package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stagecast/stagecast/internal/teleport"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-migration
// 1 - initial snapshots table plus hash index
const currentSchemaVersion = 1

// ErrNotFound is returned when a snapshot id has no record.
var ErrNotFound = errors.New("snapshot not found")

// ErrHashMismatch is returned by Load when the stored payload no longer
// hashes to the recorded value.
var ErrHashMismatch = errors.New("snapshot payload does not match stored hash")

// Record is one archived snapshot row.
type Record struct {
	ID         string
	CreatedAt  time.Time
	FrameRate  int
	FrameCount int
	Hash       string
}

// Store is a SQLite-backed snapshot archive.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the archive database at path. WAL mode keeps reads
// available during writes; the pool is pinned to a single connection since
// SQLite allows one writer at a time.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect archive: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save encodes and stores a snapshot, returning the new record.
func (s *Store) Save(ctx context.Context, snap *teleport.Snapshot) (*Record, error) {
	payload, err := snap.Encode(false)
	if err != nil {
		return nil, err
	}
	hash, err := teleport.Hash(snap)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         uuid.Must(uuid.NewV7()).String(),
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
		FrameRate:  snap.Meta.FrameRate,
		FrameCount: snap.Meta.FrameCount,
		Hash:       hash,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, frame_rate, frame_count, hash, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.Format(time.RFC3339Nano),
		rec.FrameRate, rec.FrameCount, rec.Hash, payload)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return rec, nil
}

// Load decodes the snapshot with the given id, verifying the stored hash.
func (s *Store) Load(ctx context.Context, id string) (*teleport.Snapshot, *Record, error) {
	var (
		rec       Record
		createdAt string
		payload   string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, frame_rate, frame_count, hash, payload
		 FROM snapshots WHERE id = ?`, id)
	err := row.Scan(&rec.ID, &createdAt, &rec.FrameRate, &rec.FrameCount, &rec.Hash, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, nil, fmt.Errorf("parse created_at: %w", err)
	}

	snap, err := teleport.Decode(payload)
	if err != nil {
		return nil, nil, err
	}
	hash, err := teleport.Hash(snap)
	if err != nil {
		return nil, nil, err
	}
	if hash != rec.Hash {
		return nil, nil, fmt.Errorf("%w: %s", ErrHashMismatch, id)
	}
	return snap, &rec, nil
}

// List returns records newest-first, without payloads.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, frame_rate, frame_count, hash
		 FROM snapshots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &rec.FrameRate, &rec.FrameCount, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if missing and runs migrations. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the hash lookup index for databases created before the
// index shipped in schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_hash
		ON snapshots(hash)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
