package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		game_id    TEXT    NOT NULL,
		turn       INTEGER NOT NULL DEFAULT 0,
		state      BLOB    NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_game ON sessions (game_id)`,
}

// SQLite persists sessions in a single local database file.
type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: serializes writers and keeps :memory: databases
	// coherent across statements.
	db.SetMaxOpenConns(1)

	setup := append([]string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}, sqliteSchema...)
	for _, stmt := range setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, game_id, turn, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			game_id    = excluded.game_id,
			turn       = excluded.turn,
			state      = excluded.state,
			updated_at = excluded.updated_at`,
		rec.SessionID, rec.GameID, rec.Turn, []byte(rec.State), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, sessionID string) (Record, error) {
	var row struct {
		SessionID string `db:"session_id"`
		GameID    string `db:"game_id"`
		Turn      int    `db:"turn"`
		State     []byte `db:"state"`
		UpdatedAt int64  `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT session_id, game_id, turn, state, updated_at FROM sessions WHERE session_id = ?",
		sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return Record{
		SessionID: row.SessionID,
		GameID:    row.GameID,
		Turn:      row.Turn,
		State:     row.State,
		UpdatedAt: time.Unix(row.UpdatedAt, 0).UTC(),
	}, nil
}

func (s *SQLite) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
