// Package session persists the per-run transcript archive (the material
// the summarizer works from) and the dispatched-command history.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/lectern/internal/log"
)

// Transcript is one archived utterance.
type Transcript struct {
	Speaker   string
	Text      string
	Timestamp string
}

// CommandRecord is one dispatched token.
type CommandRecord struct {
	Token     string
	Timestamp string
}

// Store records transcripts and commands for one daemon run. Writes are
// best-effort: a failed insert is logged, never surfaced to the hot path.
type Store struct {
	db        *sql.DB
	sessionID string
	logger    *slog.Logger
}

// NewStore opens a store scoped to a fresh session id.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		sessionID: uuid.NewString(),
		logger:    log.WithComponent("session"),
	}
}

// SessionID returns this run's session identifier.
func (s *Store) SessionID() string {
	return s.sessionID
}

// AppendTranscript archives one utterance. Implements fleet.TranscriptSink.
func (s *Store) AppendTranscript(speaker, text string) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO transcript_log(id, session_id, speaker, text, created_at) VALUES(?, ?, ?, ?, ?);`,
		uuid.NewString(), s.sessionID, speaker, text, now,
	)
	if err != nil {
		s.logger.Error("failed to archive transcript", "error", err)
	}
}

// LogCommand records one dispatched token. Implements dispatch.CommandLogger.
func (s *Store) LogCommand(token string) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO command_log(id, session_id, token, created_at) VALUES(?, ?, ?, ?);`,
		uuid.NewString(), s.sessionID, token, now,
	)
	if err != nil {
		s.logger.Error("failed to log command", "error", err)
	}
}

// Transcripts returns this session's utterances, oldest first.
func (s *Store) Transcripts(ctx context.Context) ([]Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, text, created_at FROM transcript_log WHERE session_id = ? ORDER BY created_at;`,
		s.sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.Speaker, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Commands returns this session's dispatched tokens, oldest first.
func (s *Store) Commands(ctx context.Context) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, created_at FROM command_log WHERE session_id = ? ORDER BY created_at;`,
		s.sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.Token, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
