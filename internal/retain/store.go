// Package retain keeps the raw audio of finished cycles so a failed
// transcription can be retried without re-recording. Entries are immutable
// once stored.
package retain

import (
	"context"
	"sync"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
)

// Store is the retained-audio map keyed by request ID.
type Store interface {
	Put(ctx context.Context, requestID string, captured audio.Captured) error
	Get(ctx context.Context, requestID string) (audio.Captured, bool, error)
	Delete(ctx context.Context, requestID string) error
	Clear(ctx context.Context) error
}

const defaultMemoryCap = 8

// Memory is the default in-process store: bounded, oldest evicted first.
type Memory struct {
	mu    sync.RWMutex
	cap   int
	order []string
	byID  map[string]audio.Captured
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCap
	}
	return &Memory{
		cap:  capacity,
		byID: make(map[string]audio.Captured),
	}
}

func (m *Memory) Put(_ context.Context, requestID string, captured audio.Captured) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[requestID]; !exists {
		m.order = append(m.order, requestID)
	}
	m.byID[requestID] = captured

	for len(m.order) > m.cap {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.byID, oldest)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, requestID string) (audio.Captured, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	captured, ok := m.byID[requestID]
	return captured, ok, nil
}

func (m *Memory) Delete(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[requestID]; !ok {
		return nil
	}
	delete(m.byID, requestID)
	for i, id := range m.order {
		if id == requestID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.byID = make(map[string]audio.Captured)
	return nil
}
