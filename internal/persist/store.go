// Package persist stores session state between turns. Three drivers share
// one interface: an in-memory map for tests and throwaway play, a SQLite
// file for single-host deployments, and Postgres for everything else.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plotplay/engine/internal/config"
)

// Record is one persisted session: the serialized engine state plus enough
// metadata to list and resume it without parsing the blob.
type Record struct {
	SessionID string
	GameID    string
	Turn      int
	State     json.RawMessage
	UpdatedAt time.Time
}

// ErrNotFound is returned when no session exists under the requested id.
var ErrNotFound = errors.New("session not found")

// Store saves and restores session records. Save overwrites any existing
// record under the same session id.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, sessionID string) (Record, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(ctx, cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
