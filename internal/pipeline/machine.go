package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/gate"
	"github.com/DovieW/tangerine-voice-sub000/internal/notify"
	"github.com/DovieW/tangerine-voice-sub000/internal/output"
	"github.com/DovieW/tangerine-voice-sub000/internal/requestlog"
	"github.com/DovieW/tangerine-voice-sub000/internal/rewrite"
	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
	"github.com/DovieW/tangerine-voice-sub000/internal/transcription"
	"github.com/DovieW/tangerine-voice-sub000/internal/vad"
)

// ErrSuperseded reports that a force reset landed while a cycle was in
// flight; the cycle's result is discarded.
var ErrSuperseded = errors.New("cycle superseded by reset")

// CycleResult is what a finished cycle hands back to the caller.
type CycleResult struct {
	RequestID  string `json:"request_id"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	Text       string `json:"text,omitempty"`
}

// cycle is the per-recording bookkeeping. The effective configuration is
// captured once at start; settings changes mid-cycle affect the next cycle.
type cycle struct {
	id        string
	gen       uint64
	eff       config.Effective
	session   *audio.CaptureSession
	startedAt time.Time
}

type Deps struct {
	Logger        *slog.Logger
	Bus           *notify.Bus
	Config        *config.Sync
	Transcription *transcription.Coordinator
	Rewrite       *rewrite.Coordinator
	Requests      *requestlog.Log
	Detector      vad.Detector
	Sink          output.Sink
}

// Machine is the single owner of the pipeline state. Mutating operations
// serialize on opMu, so no two cycles ever overlap; State never blocks on
// an in-flight provider call.
type Machine struct {
	log      *slog.Logger
	bus      *notify.Bus
	cfg      *config.Sync
	stt      *transcription.Coordinator
	rew      *rewrite.Coordinator
	requests *requestlog.Log
	detector vad.Detector
	sink     output.Sink

	opMu sync.Mutex

	stateMu sync.RWMutex
	gen     uint64
	state   State
	cur     *cycle
}

func NewMachine(d Deps) *Machine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		log:      logger.With("component", "pipeline"),
		bus:      d.Bus,
		cfg:      d.Config,
		stt:      d.Transcription,
		rew:      d.Rewrite,
		requests: d.Requests,
		detector: d.Detector,
		sink:     d.Sink,
		state:    State{Phase: PhaseIdle},
	}
}

// State returns the current pipeline state. Read-only, never blocked by a
// cycle in flight.
func (m *Machine) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// SyncConfig re-reads the settings store. Serialized with the mutating
// operations so a refresh never lands in the middle of a state change; the
// cycle in flight keeps its captured snapshot regardless.
func (m *Machine) SyncConfig() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.cfg.Refresh()
}

// StartRecording opens a capture session and enters Recording. Valid only
// from Idle; an Error state must be retried or reset first.
func (m *Machine) StartRecording(appCtx config.AppContext, device string, sampleRate, channels int) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.Lock()
	next, err := Transition(m.state.Phase, EventStart)
	if err != nil {
		m.stateMu.Unlock()
		return "", shared.ErrAlreadyRecording
	}

	eff := m.cfg.Effective(appCtx)
	id := shared.NewID("req_")

	session := audio.NewCaptureSession(eff.Audio, device, sampleRate, channels, func(u audio.LevelUpdate) {
		m.bus.Publish(notify.TypeAudioLevel, u)
	})

	m.state = State{Phase: next}
	m.cur = &cycle{
		id:        id,
		gen:       m.gen,
		eff:       eff,
		session:   session,
		startedAt: session.StartedAt(),
	}
	state := m.state
	m.stateMu.Unlock()

	m.requests.AppendInProgress(&requestlog.Record{
		ID:          id,
		Profile:     eff.ProfileName,
		SttProvider: eff.SttProvider,
		SttModel:    eff.SttModel,
	})
	if eff.ProfileName != "" {
		m.requests.Note(id, "info", "profile applied: "+eff.ProfileName)
	}

	m.log.Info("recording started", "request_id", id, "device", device, "profile", eff.ProfileName)
	m.bus.Publish(notify.TypeRecordingStarted, notify.RequestPayload{RequestID: id})
	m.bus.Publish(notify.TypeStateChanged, state)
	return id, nil
}

// PushAudio feeds raw samples into the active capture session. Called at
// device-callback rate, so it takes no operation lock.
func (m *Machine) PushAudio(samples []float32) error {
	m.stateMu.RLock()
	cyc := m.cur
	recording := m.state.Phase == PhaseRecording
	m.stateMu.RUnlock()

	if !recording || cyc == nil {
		return shared.ErrNotRecording
	}
	return cyc.session.Append(samples)
}

// CancelRecording discards the active session without any provider call.
func (m *Machine) CancelRecording() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.Lock()
	if m.state.Phase != PhaseRecording || m.cur == nil {
		m.stateMu.Unlock()
		return shared.ErrNotRecording
	}
	next, err := Transition(m.state.Phase, EventCancel)
	if err != nil {
		m.stateMu.Unlock()
		return err
	}
	cyc := m.cur
	m.state = State{Phase: next}
	m.cur = nil
	state := m.state
	m.stateMu.Unlock()

	cyc.session.Cancel()
	_ = m.requests.Finalize(cyc.id, requestlog.StatusCancelled, nil)

	m.log.Info("recording cancelled", "request_id", cyc.id)
	m.bus.Publish(notify.TypeCancelled, notify.RequestPayload{RequestID: cyc.id})
	m.bus.Publish(notify.TypeStateChanged, state)
	return nil
}

// StopAndTranscribe closes the session, runs the quiet gate, and drives the
// rest of the cycle. The call blocks until the cycle reaches a terminal
// sub-state; concurrent mutating calls queue behind it.
func (m *Machine) StopAndTranscribe(ctx context.Context) (*CycleResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.RLock()
	cyc := m.cur
	phase := m.state.Phase
	m.stateMu.RUnlock()

	if phase != PhaseRecording || cyc == nil {
		return nil, shared.ErrNotRecording
	}

	if !m.commit(cyc.gen, EventStop, nil) {
		return nil, ErrSuperseded
	}
	m.bus.Publish(notify.TypeTranscriptionStarted, notify.RequestPayload{RequestID: cyc.id})

	captured, err := cyc.session.Stop(m.detector.SpeechDetected)
	if err != nil {
		// no transcript was attempted, so back to Idle rather than Error
		wrapped := fmt.Errorf("%w: %s", shared.ErrAudioCapture, err)
		if m.commit(cyc.gen, EventCancel, func() { m.cur = nil }) {
			_ = m.requests.Finalize(cyc.id, requestlog.StatusError, func(r *requestlog.Record) {
				r.ErrorMessage = wrapped.Error()
			})
			m.bus.Publish(notify.TypeError, notify.ErrorPayload{Message: wrapped.Error()})
		}
		return nil, shared.WrapRequest(cyc.id, wrapped)
	}

	recordingMs := int64(captured.Stats.DurationSecs * 1000)
	_ = m.requests.Update(cyc.id, func(r *requestlog.Record) {
		r.RecordingMs = recordingMs
	})
	m.requests.Note(cyc.id, "info", fmt.Sprintf("captured %.2fs, rms %.1f dBFS, peak %.1f dBFS",
		captured.Stats.DurationSecs, captured.Stats.RmsDb(), captured.Stats.PeakDb()))

	if res := gate.Decide(captured.Stats, cyc.eff.Gate); res.Decision == gate.Skip {
		if !m.commit(cyc.gen, EventSkip, func() { m.cur = nil }) {
			return nil, ErrSuperseded
		}
		_ = m.requests.Finalize(cyc.id, requestlog.StatusSuccess, func(r *requestlog.Record) {
			r.Skipped = true
			r.SkipReason = res.Reason
		})
		m.log.Info("transcription skipped", "request_id", cyc.id, "reason", res.Reason)
		return &CycleResult{RequestID: cyc.id, Skipped: true, SkipReason: res.Reason}, nil
	}

	return m.transcribeAndFinish(ctx, cyc, captured)
}

// RetryTranscription re-runs a failed cycle from its retained audio under a
// freshly resolved configuration. A new record is appended, linked to the
// failed one; finalized records stay immutable.
func (m *Machine) RetryTranscription(ctx context.Context, requestID string, appCtx config.AppContext) (*CycleResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	captured, err := m.stt.Retained(ctx, requestID)
	if err != nil {
		return nil, err
	}

	m.stateMu.Lock()
	next, err := Transition(m.state.Phase, EventRetry)
	if err != nil {
		m.stateMu.Unlock()
		return nil, shared.ErrAlreadyRecording
	}

	eff := m.cfg.Effective(appCtx)
	id := shared.NewID("req_")
	cyc := &cycle{id: id, gen: m.gen, eff: eff}
	m.state = State{Phase: next}
	m.cur = cyc
	state := m.state
	m.stateMu.Unlock()

	m.bus.Publish(notify.TypeStateChanged, state)
	m.requests.AppendInProgress(&requestlog.Record{
		ID:          id,
		RetryOf:     requestID,
		Profile:     eff.ProfileName,
		SttProvider: eff.SttProvider,
		SttModel:    eff.SttModel,
	})
	m.requests.Note(id, "info", "retry of "+requestID)

	m.log.Info("retrying transcription", "request_id", id, "retry_of", requestID)
	m.bus.Publish(notify.TypeTranscriptionStarted, notify.RequestPayload{RequestID: id})

	return m.transcribeAndFinish(ctx, cyc, captured)
}

// ForceReset returns the pipeline to Idle from any state, discarding in
// flight work. It deliberately skips the operation lock: a stuck cycle is
// exactly what it recovers from. The generation bump makes the abandoned
// cycle's later commits no-ops.
func (m *Machine) ForceReset() {
	m.stateMu.Lock()
	m.gen++
	cyc := m.cur
	m.cur = nil
	m.state = State{Phase: PhaseIdle}
	state := m.state
	m.stateMu.Unlock()

	if cyc != nil {
		if cyc.session != nil {
			cyc.session.Cancel()
		}
		_ = m.requests.Finalize(cyc.id, requestlog.StatusCancelled, nil)
	}

	m.log.Info("pipeline force reset")
	m.bus.Publish(notify.TypeReset, nil)
	m.bus.Publish(notify.TypeStateChanged, state)
}

// transcribeAndFinish drives STT, optional rewrite, and delivery for one
// cycle already in Transcribing.
func (m *Machine) transcribeAndFinish(ctx context.Context, cyc *cycle, captured audio.Captured) (*CycleResult, error) {
	out, err := m.stt.Transcribe(ctx, cyc.id, captured, cyc.eff)
	if err != nil {
		return nil, m.failCycle(cyc, err)
	}

	_ = m.requests.Update(cyc.id, func(r *requestlog.Record) {
		r.SttProvider = out.Provider
		r.SttModel = out.Model
		r.RawTranscript = out.Text
		r.SttMs = out.Elapsed.Milliseconds()
		r.RawSttRequest = out.RawRequest
		r.RawSttResponse = out.RawResponse
	})

	text := out.Text
	if cyc.eff.RewriteEnabled && strings.TrimSpace(text) != "" {
		if !m.commit(cyc.gen, EventBeginRewrite, nil) {
			return nil, ErrSuperseded
		}

		rout, err := m.rew.Rewrite(ctx, cyc.id, text, cyc.eff)
		if err != nil {
			return nil, m.failCycle(cyc, err)
		}
		text = rout.Text
		_ = m.requests.Update(cyc.id, func(r *requestlog.Record) {
			r.LlmProvider = rout.Provider
			r.LlmModel = rout.Model
			r.LlmMs = rout.Elapsed.Milliseconds()
			r.RawLlmRequest = rout.RawRequest
			r.RawLlmResponse = rout.RawResponse
		})
	}

	if !m.commit(cyc.gen, EventComplete, func() { m.cur = nil }) {
		return nil, ErrSuperseded
	}

	if err := m.sink.Deliver(ctx, text); err != nil {
		m.log.Warn("delivery failed", "request_id", cyc.id, "error", err)
		m.requests.Note(cyc.id, "warn", "delivery failed: "+err.Error())
	}

	final := text
	_ = m.requests.Finalize(cyc.id, requestlog.StatusSuccess, func(r *requestlog.Record) {
		r.FinalText = final
	})

	m.log.Info("cycle complete", "request_id", cyc.id, "chars", len(text))
	m.bus.Publish(notify.TypeTranscriptReady, notify.TranscriptPayload{RequestID: cyc.id, Text: text})
	return &CycleResult{RequestID: cyc.id, Text: text}, nil
}

// failCycle finalizes a provider failure: record frozen as error, audio
// stays retained, state becomes Error carrying the request ID for retry.
func (m *Machine) failCycle(cyc *cycle, err error) error {
	wrapped := shared.WrapRequest(cyc.id, err)

	m.stateMu.Lock()
	if cyc.gen != m.gen {
		m.stateMu.Unlock()
		return ErrSuperseded
	}
	next, terr := Transition(m.state.Phase, EventFail)
	if terr != nil {
		m.stateMu.Unlock()
		return ErrSuperseded
	}
	m.state = State{Phase: next, ErrorMessage: err.Error(), RequestID: cyc.id}
	m.cur = nil
	state := m.state
	m.stateMu.Unlock()

	_ = m.requests.Finalize(cyc.id, requestlog.StatusError, func(r *requestlog.Record) {
		r.ErrorMessage = err.Error()
	})

	m.log.Warn("cycle failed", "request_id", cyc.id, "kind", shared.ErrorKind(err), "error", err)
	m.bus.Publish(notify.TypeError, notify.ErrorPayload{Message: err.Error(), RequestID: cyc.id})
	m.bus.Publish(notify.TypeStateChanged, state)
	return wrapped
}

// commit applies one transition if the cycle's generation is still current,
// and publishes the state change itself so every applied transition emits
// exactly one state-change notification. A false return means a force reset
// superseded the cycle.
func (m *Machine) commit(gen uint64, ev Event, also func()) bool {
	m.stateMu.Lock()
	if gen != m.gen {
		m.stateMu.Unlock()
		return false
	}
	next, err := Transition(m.state.Phase, ev)
	if err != nil {
		m.stateMu.Unlock()
		m.log.Error("refused transition", "event", ev, "phase", m.state.Phase)
		return false
	}
	m.state = State{Phase: next}
	if also != nil {
		also()
	}
	state := m.state
	m.stateMu.Unlock()

	m.bus.Publish(notify.TypeStateChanged, state)
	return true
}
