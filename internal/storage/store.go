// Package storage persists chat sessions and their append-only turn lists in
// an embedded sqlite database keyed by session id. A single database writer
// replaces the whole-file JSON log the product shipped with, which had a
// read-modify-write race between concurrent turns.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zodiai/backend/internal/model/chat"
)

// ErrSessionNotFound is returned when reading a session id with no record.
var ErrSessionNotFound = errors.New("session not found")

// Store manages the chat log database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates or opens the chat log store under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "zodiai.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		birth_details_json TEXT
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		is_generated INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE(session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendTurn appends one turn to the session, creating the session record on
// first write and overlaying any supplied birth details last-write-wins.
// Appends are never deduplicated; append order equals arrival order.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn chat.Turn, details *chat.BirthDetails) (chat.Turn, error) {
	if sessionID == "" {
		return chat.Turn{}, errors.New("session id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	existing, err := readBirthDetails(ctx, tx, sessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, created_at, birth_details_json) VALUES (?, ?, NULL)`,
			sessionID, time.Now().UTC(),
		); err != nil {
			return chat.Turn{}, fmt.Errorf("create session: %w", err)
		}
	case err != nil:
		return chat.Turn{}, err
	}

	if details != nil {
		merged := existing.Merge(details)
		raw, err := json.Marshal(merged)
		if err != nil {
			return chat.Turn{}, fmt.Errorf("encode birth details: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET birth_details_json = ? WHERE id = ?`, string(raw), sessionID,
		); err != nil {
			return chat.Turn{}, fmt.Errorf("update birth details: %w", err)
		}
	}

	turn.ID = uuid.NewString()
	turn.SessionID = sessionID
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, seq, role, content, is_generated, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?), ?, ?, ?, ?)`,
		turn.ID, sessionID, sessionID, turn.Role, turn.Content, turn.IsGenerated, turn.CreatedAt,
	); err != nil {
		return chat.Turn{}, fmt.Errorf("insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Turn{}, fmt.Errorf("commit append: %w", err)
	}
	return turn, nil
}

// GetSession returns a session together with its turns in append order.
func (s *Store) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	var (
		session  chat.Session
		birthRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, birth_details_json FROM sessions WHERE id = ?`, sessionID,
	).Scan(&session.ID, &session.CreatedAt, &birthRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("read session: %w", err)
	}

	if birthRaw.Valid && birthRaw.String != "" {
		var details chat.BirthDetails
		if err := json.Unmarshal([]byte(birthRaw.String), &details); err != nil {
			return chat.Session{}, fmt.Errorf("decode birth details: %w", err)
		}
		session.BirthDetails = &details
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, is_generated, created_at FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return chat.Session{}, fmt.Errorf("read turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		turn := chat.Turn{SessionID: sessionID}
		if err := rows.Scan(&turn.ID, &turn.Role, &turn.Content, &turn.IsGenerated, &turn.CreatedAt); err != nil {
			return chat.Session{}, fmt.Errorf("scan turn: %w", err)
		}
		session.Turns = append(session.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return chat.Session{}, fmt.Errorf("iterate turns: %w", err)
	}

	return session, nil
}

// BirthDetails returns the stored birth details for a session, nil when the
// session exists without any.
func (s *Store) BirthDetails(ctx context.Context, sessionID string) (*chat.BirthDetails, error) {
	return readBirthDetails(ctx, s.db, sessionID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBirthDetails(ctx context.Context, q queryRower, sessionID string) (*chat.BirthDetails, error) {
	var raw sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT birth_details_json FROM sessions WHERE id = ?`, sessionID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read birth details: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	var details chat.BirthDetails
	if err := json.Unmarshal([]byte(raw.String), &details); err != nil {
		return nil, fmt.Errorf("decode birth details: %w", err)
	}
	return &details, nil
}
