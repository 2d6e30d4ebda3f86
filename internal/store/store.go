// Package store checkpoints the latest snapshot of each game so a restarted
// server can resume it.
package store

import (
	"context"
	"sync"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// Store keeps one snapshot per game. Save ignores versions that are not newer
// than what is already stored.
type Store interface {
	Save(ctx context.Context, version int, s engine.State) error
	Load(ctx context.Context, id string) (s engine.State, version int, found bool, err error)
}

type record struct {
	version int
	state   engine.State
}

type Memory struct {
	mu    sync.RWMutex
	games map[string]record
}

func NewMemory() *Memory {
	return &Memory{games: make(map[string]record)}
}

func (m *Memory) Save(_ context.Context, version int, s engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.games[s.ID]; ok && cur.version >= version {
		return nil
	}
	m.games[s.ID] = record{version: version, state: s}
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (engine.State, int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	return rec.state, rec.version, ok, nil
}
