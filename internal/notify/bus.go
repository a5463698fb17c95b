// Package notify is the one-directional notification bus between the
// pipeline orchestrator and the UI overlay. Publishing never blocks; a slow
// subscriber loses events rather than stalling a cycle.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Notification types consumed by the overlay UI.
const (
	TypeRecordingStarted     = "pipeline-recording-started"
	TypeTranscriptionStarted = "pipeline-transcription-started"
	TypeCancelled            = "pipeline-cancelled"
	TypeReset                = "pipeline-reset"
	TypeError                = "pipeline-error"
	TypeTranscriptReady      = "pipeline-transcript-ready"
	TypeAudioLevel           = "pipeline-audio-level"
	TypeStateChanged         = "pipeline-state-changed"
)

type Event struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

type RequestPayload struct {
	RequestID string `json:"request_id"`
}

type ErrorPayload struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type TranscriptPayload struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

const subscriberBuffer = 128

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	log  *slog.Logger
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		log:  logger.With("component", "notify_bus"),
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a receive channel and a cancel function. The channel is
// closed on cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking. Full buffers
// drop the event for that subscriber.
func (b *Bus) Publish(eventType string, payload any) {
	ev := Event{Type: eventType, Time: time.Now(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if eventType != TypeAudioLevel {
				b.log.Debug("subscriber buffer full, dropping event", "type", eventType)
			}
		}
	}
}

// SubscriberCount reports active subscribers; used by the health surface.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
