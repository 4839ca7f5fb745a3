// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists pipeline sessions in a SQLite database. Saves are
// atomic and payloads are checksummed; a truncated or tampered payload reads
// back as "session not found" instead of poisoning a resumed run.
package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreport/pkg/types"
)

const dbFile = "litreport.db"

// payloadVersion is bumped when the persisted Session shape changes.
const payloadVersion = 1

// Store manages the session SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStore opens or creates the session database at dataDir/litreport.db and
// ensures the schema exists.
func NewStore(cfg types.StoreConfig, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, log: log, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		payload TEXT NOT NULL,
		checksum TEXT NOT NULL,
		topic TEXT NOT NULL,
		stage TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Save persists the full session, replacing any prior version atomically.
// Records still marked downloading revert to queued in the stored copy, so a
// resumed run retries them cleanly.
func (s *Store) Save(ctx context.Context, sess *types.Session) error {
	for _, rec := range sess.Records {
		if rec.ArtifactStatus == types.ArtifactDownloading {
			rec.ArtifactStatus = types.ArtifactQueued
		}
	}
	sess.UpdatedAt = s.now()

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	sum := sha256.Sum256(payload)

	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions
		(id, version, payload, checksum, topic, stage, record_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			checksum = excluded.checksum,
			topic = excluded.topic,
			stage = excluded.stage,
			record_count = excluded.record_count,
			updated_at = excluded.updated_at`,
		sess.ID, payloadVersion, string(payload), hex.EncodeToString(sum[:]),
		sess.Topic, string(sess.Stage), len(sess.Records),
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// Load reads a session by id. A missing session returns (nil, nil). A stored
// payload that fails checksum or decode verification is treated as absent
// and logged; it never aborts the caller.
func (s *Store) Load(ctx context.Context, id string) (*types.Session, error) {
	var payload, checksum string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, checksum FROM sessions WHERE id = ?`, id,
	).Scan(&payload, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	sess, err := decodePayload(payload, checksum)
	if err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("stored session unreadable, treating as absent")
		return nil, nil
	}
	return sess, nil
}

func decodePayload(payload, checksum string) (*types.Session, error) {
	sum := sha256.Sum256([]byte(payload))
	if hex.EncodeToString(sum[:]) != checksum {
		return nil, fmt.Errorf("checksum mismatch: %w", types.ErrCorruptSession)
	}
	var sess types.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("decoding payload: %w: %v", types.ErrCorruptSession, err)
	}
	if sess.Records == nil {
		sess.Records = make(map[string]*types.Record)
	}
	return &sess, nil
}

// List returns summaries of all stored sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]types.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, stage, record_count, updated_at
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []types.SessionSummary
	for rows.Next() {
		var sum types.SessionSummary
		var stage, updated string
		if err := rows.Scan(&sum.ID, &sum.Topic, &stage, &sum.Records, &updated); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Stage = types.Stage(stage)
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			sum.UpdatedAt = t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a stored session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}
