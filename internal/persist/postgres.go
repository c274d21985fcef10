package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/config"
)

// Postgres persists sessions through a pgx connection pool. Schema
// migrations run on open.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgres(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, game_id, turn, state, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id) DO UPDATE SET
			game_id    = EXCLUDED.game_id,
			turn       = EXCLUDED.turn,
			state      = EXCLUDED.state,
			updated_at = now()`,
		rec.SessionID, rec.GameID, rec.Turn, []byte(rec.State))
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, sessionID string) (Record, error) {
	var (
		rec   Record
		state []byte
	)
	err := p.pool.QueryRow(ctx,
		"SELECT session_id, game_id, turn, state, updated_at FROM sessions WHERE session_id = $1",
		sessionID,
	).Scan(&rec.SessionID, &rec.GameID, &rec.Turn, &state, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	rec.State = state
	return rec, nil
}

func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM sessions WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
