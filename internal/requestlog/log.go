package requestlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultCap = 50

// Archiver receives finalized records, e.g. for database persistence.
// Archive failures are logged, never surfaced into the pipeline.
type Archiver interface {
	Archive(ctx context.Context, rec *Record) error
}

// Log is the bounded in-memory request history. Entries are visible as soon
// as AppendInProgress returns, mutate in place while the cycle proceeds, and
// freeze on finalize. Oldest finalized entries are evicted past the cap.
type Log struct {
	log      *slog.Logger
	archiver Archiver

	mu      sync.RWMutex
	cap     int
	order   []string
	byID    map[string]*Record
}

func New(capacity int, archiver Archiver, logger *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = defaultCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		log:      logger.With("component", "request_log"),
		archiver: archiver,
		cap:      capacity,
		byID:     make(map[string]*Record),
	}
}

// AppendInProgress registers a new cycle's record.
func (l *Log) AppendInProgress(rec *Record) {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.Status = StatusInProgress

	l.mu.Lock()
	defer l.mu.Unlock()

	l.byID[rec.ID] = rec
	l.order = append(l.order, rec.ID)
	l.evictLocked()
}

// Update mutates an in-progress record. Finalized records are immutable.
func (l *Log) Update(id string, fn func(*Record)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("request %s not in log", id)
	}
	if rec.finalized() {
		return fmt.Errorf("request %s already finalized", id)
	}
	fn(rec)
	return nil
}

// Note appends a structured log entry to an in-progress record.
func (l *Log) Note(id, level, message string) {
	_ = l.Update(id, func(r *Record) {
		r.Entries = append(r.Entries, Entry{Time: time.Now(), Level: level, Message: message})
	})
}

// Finalize freezes a record with the given terminal status. The finish
// timestamp is stamped here so log state never lags the pipeline state.
func (l *Log) Finalize(id string, status Status, fn func(*Record)) error {
	l.mu.Lock()

	rec, ok := l.byID[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("request %s not in log", id)
	}
	if rec.finalized() {
		l.mu.Unlock()
		return fmt.Errorf("request %s already finalized", id)
	}

	if fn != nil {
		fn(rec)
	}
	now := time.Now()
	rec.FinishedAt = &now
	rec.Status = status
	archived := rec.clone()
	l.mu.Unlock()

	if l.archiver != nil {
		if err := l.archiver.Archive(context.Background(), archived); err != nil {
			l.log.Warn("archive failed", "request_id", id, "error", err)
		}
	}
	return nil
}

// Get returns a copy of one record.
func (l *Log) Get(id string) (*Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit records, newest first, as copies.
func (l *Log) List(limit int) []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.order) {
		limit = len(l.order)
	}

	out := make([]*Record, 0, limit)
	for i := len(l.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.byID[l.order[i]].clone())
	}
	return out
}

// Clear drops every finalized record. In-flight records survive.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.order[:0]
	for _, id := range l.order {
		if rec := l.byID[id]; rec.finalized() {
			delete(l.byID, id)
		} else {
			kept = append(kept, id)
		}
	}
	l.order = kept
}

// evictLocked drops the oldest finalized records beyond the cap. A record
// still in flight is never evicted.
func (l *Log) evictLocked() {
	for len(l.order) > l.cap {
		evicted := false
		for i, id := range l.order {
			if l.byID[id].finalized() {
				delete(l.byID, id)
				l.order = append(l.order[:i], l.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}
