package credstore

import (
	"context"
	"maps"
	"sync"

	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
)

// Memory keeps the session in process memory. Nothing survives a restart.
type Memory struct {
	mu     sync.RWMutex
	fields map[string]string
	log    *logging.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(log *logging.Logger) *Memory {
	return &Memory{log: log}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, sess domain.Session) error {
	f := encode(sess)
	m.mu.Lock()
	m.fields = f
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context) (*domain.Session, error) {
	m.mu.RLock()
	f := maps.Clone(m.fields)
	m.mu.RUnlock()
	return resolve(ctx, f, m, m.log)
}

// Clear implements Store.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.fields = nil
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return m.Clear(context.Background())
}

