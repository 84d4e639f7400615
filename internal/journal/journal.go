// Package journal stores the reduced actions of every session in DuckDB so a
// session can be inspected or replayed later.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-viewer/internal/action"
)

const schema = `CREATE TABLE IF NOT EXISTS actions (
	session VARCHAR NOT NULL,
	seq     BIGINT NOT NULL,
	type    VARCHAR NOT NULL,
	payload VARCHAR,
	at      TIMESTAMP NOT NULL,
	PRIMARY KEY (session, seq)
)`

// Config holds database configuration. An empty DataDir keeps the journal in
// memory.
type Config struct {
	DataDir string
	DBName  string
}

// Entry is one journaled action.
type Entry struct {
	Session string          `json:"session" doc:"Session id"`
	Seq     uint64          `json:"seq" doc:"Position in the session stream, from 1"`
	Type    string          `json:"type" doc:"Action tag"`
	Payload json.RawMessage `json:"payload,omitempty" doc:"Action payload"`
	At      time.Time       `json:"at" doc:"Time the action was reduced"`
}

// Envelope returns the wire form of e.
func (e Entry) Envelope() action.Envelope {
	return action.Envelope{Type: e.Type, Payload: e.Payload}
}

// Journal is a DuckDB backed action log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database.
func Open(cfg Config) (*Journal, error) {
	dsn := ""
	if cfg.DataDir != "" {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "journal"
		}
		dsn = filepath.Join(dir, name+".duckdb")
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores a reduced action.
func (j *Journal) Append(ctx context.Context, session string, seq uint64, a action.Action) error {
	env, err := action.Encode(a)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO actions (session, seq, type, payload, at) VALUES (?, ?, ?, ?, ?)`,
		session, int64(seq), env.Type, string(env.Payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append %s #%d: %w", session, seq, err)
	}
	return nil
}

// Entries returns the journal of a session in stream order. after skips the
// entries up to and including that sequence number.
func (j *Journal) Entries(ctx context.Context, session string, after uint64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, type, payload, at FROM actions WHERE session = ? AND seq > ? ORDER BY seq`,
		session, int64(after))
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			seq     int64
			payload sql.NullString
			e       = Entry{Session: session}
		)
		if err := rows.Scan(&seq, &e.Type, &payload, &e.At); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Seq = uint64(seq)
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Actions decodes the journal of a session. Entries whose tag is no longer
// registered are skipped and counted.
func (j *Journal) Actions(ctx context.Context, session string) (actions []action.Action, skipped int, err error) {
	entries, err := j.Entries(ctx, session, 0)
	if err != nil {
		return nil, 0, err
	}
	actions = make([]action.Action, 0, len(entries))
	for _, e := range entries {
		a, err := action.Decode(e.Envelope())
		if err != nil {
			skipped++
			continue
		}
		actions = append(actions, a)
	}
	return actions, skipped, nil
}

// Sessions lists the sessions present in the journal.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT session FROM actions ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete drops the journal of a session.
func (j *Journal) Delete(ctx context.Context, session string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM actions WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete journal %s: %w", session, err)
	}
	return nil
}
