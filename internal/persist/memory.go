package persist

import (
	"context"
	"sync"
	"time"
)

// Memory keeps records in a map. State bytes are copied on the way in and
// out so callers cannot alias the stored blob.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record)}
}

func (m *Memory) Save(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.State = append([]byte(nil), rec.State...)
	rec.UpdatedAt = time.Now().UTC()
	m.recs[rec.SessionID] = rec
	return nil
}

func (m *Memory) Load(ctx context.Context, sessionID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.State = append([]byte(nil), rec.State...)
	return rec, nil
}

func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.recs, sessionID)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
