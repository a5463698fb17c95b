package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DovieW/tangerine-voice-sub000/internal/config"
	"github.com/DovieW/tangerine-voice-sub000/internal/notify"
	"github.com/DovieW/tangerine-voice-sub000/internal/provider"
	"github.com/DovieW/tangerine-voice-sub000/internal/requestlog"
	"github.com/DovieW/tangerine-voice-sub000/internal/retain"
	"github.com/DovieW/tangerine-voice-sub000/internal/rewrite"
	"github.com/DovieW/tangerine-voice-sub000/internal/shared"
	"github.com/DovieW/tangerine-voice-sub000/internal/transcription"
	"github.com/DovieW/tangerine-voice-sub000/internal/vad"
)

type fakeStt struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeStt) Name() string  { return "fake" }
func (f *fakeStt) Model() string { return "fake-1" }

func (f *fakeStt) Transcribe(ctx context.Context, req provider.SttRequest) (*provider.SttResult, error) {
	f.mu.Lock()
	f.calls++
	text, errv, delay := f.text, f.err, f.delay
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if errv != nil {
		return nil, errv
	}
	return &provider.SttResult{Text: text}, nil
}

func (f *fakeStt) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStt) set(text string, err error, delay time.Duration) {
	f.mu.Lock()
	f.text, f.err, f.delay = text, err, delay
	f.mu.Unlock()
}

type fakeLlm struct {
	mu         sync.Mutex
	content    string
	err        error
	structured bool
	calls      int
}

func (f *fakeLlm) Name() string                   { return "fake" }
func (f *fakeLlm) Model() string                  { return "fake-1" }
func (f *fakeLlm) SupportsStructuredOutput() bool { return f.structured }

func (f *fakeLlm) Complete(ctx context.Context, req provider.CompletionRequest) (*provider.CompletionResult, error) {
	f.mu.Lock()
	f.calls++
	content, errv := f.content, f.err
	f.mu.Unlock()
	if errv != nil {
		return nil, errv
	}
	return &provider.CompletionResult{Content: content}, nil
}

func (f *fakeLlm) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type captureSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *captureSink) Deliver(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

type env struct {
	machine  *Machine
	stt      *fakeStt
	llm      *fakeLlm
	requests *requestlog.Log
	bus      *notify.Bus
	retained *retain.Memory
	sink     *captureSink
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.Stt.Provider = "fake"
	s.Stt.Timeout = 2 * time.Second
	s.Llm.Provider = "fake"
	s.Llm.Timeout = 2 * time.Second
	s.Gate.MinDurationSecs = 0.1
	return s
}

func newEnv(t *testing.T, settings config.Settings) *env {
	t.Helper()

	stt := &fakeStt{text: "hello world"}
	llm := &fakeLlm{content: "Hello, world."}

	registry := provider.NewRegistry()
	registry.RegisterSTT("fake", provider.SttFactory{
		New: func(creds provider.Credentials) (provider.SttProvider, error) { return stt, nil },
	})
	registry.RegisterLLM("fake", provider.LlmFactory{
		New: func(creds provider.Credentials) (provider.LlmProvider, error) { return llm, nil },
	})

	cfgSync := config.NewSync(&config.StaticStore{Settings: settings}, registry, nil)
	if err := cfgSync.Refresh(); err != nil {
		t.Fatalf("settings refresh: %v", err)
	}

	retained := retain.NewMemory(0)
	requests := requestlog.New(0, nil, nil)
	bus := notify.NewBus(nil)
	sink := &captureSink{}

	machine := NewMachine(Deps{
		Bus:           bus,
		Config:        cfgSync,
		Transcription: transcription.NewCoordinator(registry, retained, nil),
		Rewrite:       rewrite.NewCoordinator(registry, nil),
		Requests:      requests,
		Detector:      vad.NewEnergy(),
		Sink:          sink,
	})

	return &env{machine: machine, stt: stt, llm: llm, requests: requests, bus: bus, retained: retained, sink: sink}
}

func sine(freq float64, seconds float64, amplitude float64) []float32 {
	n := int(seconds * 16000)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/16000))
	}
	return out
}

func record(t *testing.T, e *env, samples []float32) string {
	t.Helper()
	id, err := e.machine.StartRecording(config.AppContext{}, "mic", 16000, 1)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := e.machine.PushAudio(samples); err != nil {
		t.Fatalf("PushAudio: %v", err)
	}
	return id
}

func drainTypes(ch <-chan notify.Event) []string {
	var types []string
	for {
		select {
		case ev := <-ch:
			if ev.Type != notify.TypeAudioLevel {
				types = append(types, ev.Type)
			}
		default:
			return types
		}
	}
}

func contains(types []string, want string) bool {
	for _, tp := range types {
		if tp == want {
			return true
		}
	}
	return false
}

func TestFullCycleSuccess(t *testing.T) {
	e := newEnv(t, testSettings())
	events, cancel := e.bus.Subscribe()
	defer cancel()

	id := record(t, e, sine(440, 0.5, 0.5))
	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if res.RequestID != id || res.Text != "hello world" || res.Skipped {
		t.Errorf("result = %+v", res)
	}
	if st := e.machine.State(); st.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", st.Phase)
	}

	rec, ok := e.requests.Get(id)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Status != requestlog.StatusSuccess || rec.FinalText != "hello world" || rec.RawTranscript != "hello world" {
		t.Errorf("record = %+v", rec)
	}
	if rec.SttProvider != "fake" || rec.RecordingMs == 0 {
		t.Errorf("provider/timing not recorded: %+v", rec)
	}

	if len(e.sink.texts) != 1 || e.sink.texts[0] != "hello world" {
		t.Errorf("sink got %v", e.sink.texts)
	}

	types := drainTypes(events)
	for _, want := range []string{
		notify.TypeRecordingStarted,
		notify.TypeTranscriptionStarted,
		notify.TypeTranscriptReady,
	} {
		if !contains(types, want) {
			t.Errorf("missing event %s in %v", want, types)
		}
	}
}

func TestStartWhileBusy(t *testing.T) {
	e := newEnv(t, testSettings())
	record(t, e, sine(440, 0.5, 0.5))

	if _, err := e.machine.StartRecording(config.AppContext{}, "mic", 16000, 1); !errors.Is(err, shared.ErrAlreadyRecording) {
		t.Fatalf("err = %v, want ErrAlreadyRecording", err)
	}
}

func TestStopWhenIdle(t *testing.T) {
	e := newEnv(t, testSettings())
	if _, err := e.machine.StopAndTranscribe(context.Background()); !errors.Is(err, shared.ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
}

func TestCancelRecording(t *testing.T) {
	e := newEnv(t, testSettings())
	events, cancel := e.bus.Subscribe()
	defer cancel()

	id := record(t, e, sine(440, 0.5, 0.5))
	if err := e.machine.CancelRecording(); err != nil {
		t.Fatalf("CancelRecording: %v", err)
	}

	if st := e.machine.State(); st.Phase != PhaseIdle {
		t.Errorf("phase = %s", st.Phase)
	}
	rec, _ := e.requests.Get(id)
	if rec.Status != requestlog.StatusCancelled {
		t.Errorf("status = %s", rec.Status)
	}
	if e.stt.Calls() != 0 {
		t.Error("cancel must not call a provider")
	}
	if !contains(drainTypes(events), notify.TypeCancelled) {
		t.Error("cancelled event not published")
	}
}

func TestGateSkipsQuietRecording(t *testing.T) {
	e := newEnv(t, testSettings())
	id := record(t, e, sine(440, 0.5, 0.001))

	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if !res.Skipped || res.SkipReason == "" {
		t.Errorf("result = %+v, want skip with reason", res)
	}
	if e.stt.Calls() != 0 {
		t.Error("skip must not call a provider")
	}

	rec, _ := e.requests.Get(id)
	if rec.Status != requestlog.StatusSuccess || !rec.Skipped || rec.FinalText != "" {
		t.Errorf("record = %+v", rec)
	}
	if st := e.machine.State(); st.Phase != PhaseIdle {
		t.Errorf("phase = %s", st.Phase)
	}
}

func TestEachTransitionPublishesOneStateChange(t *testing.T) {
	e := newEnv(t, testSettings())
	events, cancel := e.bus.Subscribe()
	defer cancel()

	record(t, e, sine(440, 0.5, 0.001))
	if _, err := e.machine.StopAndTranscribe(context.Background()); err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}

	var phases []Phase
	for {
		select {
		case ev := <-events:
			if ev.Type == notify.TypeStateChanged {
				phases = append(phases, ev.Payload.(State).Phase)
			}
		default:
			want := []Phase{PhaseRecording, PhaseTranscribing, PhaseIdle}
			if len(phases) != len(want) {
				t.Fatalf("state changes = %v, want %v", phases, want)
			}
			for i := range want {
				if phases[i] != want[i] {
					t.Fatalf("state changes = %v, want %v", phases, want)
				}
			}
			return
		}
	}
}

func TestGateSkipsShortRecording(t *testing.T) {
	e := newEnv(t, testSettings())
	record(t, e, sine(440, 0.02, 0.5))

	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if !res.Skipped {
		t.Errorf("result = %+v, want skip", res)
	}
}

func TestSttTimeoutEntersErrorAndRetains(t *testing.T) {
	settings := testSettings()
	settings.Stt.Timeout = 30 * time.Millisecond
	e := newEnv(t, settings)
	e.stt.set("late", nil, 2*time.Second)

	id := record(t, e, sine(440, 0.5, 0.5))
	_, err := e.machine.StopAndTranscribe(context.Background())
	if !errors.Is(err, shared.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}

	st := e.machine.State()
	if st.Phase != PhaseError || st.RequestID != id {
		t.Fatalf("state = %+v", st)
	}
	if !strings.Contains(st.ErrorMessage, "timeout") {
		t.Errorf("error message = %q", st.ErrorMessage)
	}

	if _, ok, _ := e.retained.Get(context.Background(), id); !ok {
		t.Error("audio not retained after failure")
	}
	rec, _ := e.requests.Get(id)
	if rec.Status != requestlog.StatusError || rec.ErrorMessage == "" {
		t.Errorf("record = %+v", rec)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	settings := testSettings()
	settings.Stt.Timeout = 30 * time.Millisecond
	e := newEnv(t, settings)
	e.stt.set("late", nil, 2*time.Second)

	failedID := record(t, e, sine(440, 0.5, 0.5))
	if _, err := e.machine.StopAndTranscribe(context.Background()); err == nil {
		t.Fatal("want failure")
	}

	e.stt.set("second try", nil, 0)
	res, err := e.machine.RetryTranscription(context.Background(), failedID, config.AppContext{})
	if err != nil {
		t.Fatalf("RetryTranscription: %v", err)
	}
	if res.Text != "second try" {
		t.Errorf("text = %q", res.Text)
	}
	if st := e.machine.State(); st.Phase != PhaseIdle || st.ErrorMessage != "" {
		t.Errorf("state = %+v", st)
	}

	rec, ok := e.requests.Get(res.RequestID)
	if !ok {
		t.Fatal("retry record missing")
	}
	if rec.RetryOf != failedID || rec.FinalText != "second try" {
		t.Errorf("retry record = %+v", rec)
	}
}

func TestStartFromErrorRejected(t *testing.T) {
	settings := testSettings()
	settings.Stt.Timeout = 30 * time.Millisecond
	e := newEnv(t, settings)
	e.stt.set("late", nil, 2*time.Second)

	record(t, e, sine(440, 0.5, 0.5))
	if _, err := e.machine.StopAndTranscribe(context.Background()); err == nil {
		t.Fatal("want failure")
	}
	if st := e.machine.State(); st.Phase != PhaseError {
		t.Fatalf("phase = %s", st.Phase)
	}

	if _, err := e.machine.StartRecording(config.AppContext{}, "mic", 16000, 1); !errors.Is(err, shared.ErrAlreadyRecording) {
		t.Fatalf("err = %v, want ErrAlreadyRecording", err)
	}
	if st := e.machine.State(); st.Phase != PhaseError {
		t.Errorf("rejected start must not disturb the error state, phase = %s", st.Phase)
	}
}

func TestRetryMissingAudio(t *testing.T) {
	e := newEnv(t, testSettings())
	_, err := e.machine.RetryTranscription(context.Background(), "req_gone", config.AppContext{})
	if !errors.Is(err, shared.ErrMissingSavedAudio) {
		t.Fatalf("err = %v, want ErrMissingSavedAudio", err)
	}
}

func TestRewritePath(t *testing.T) {
	settings := testSettings()
	settings.Llm.Enabled = true
	e := newEnv(t, settings)
	e.llm.structured = true
	e.llm.content = `{"rewritten_text": "Hello, world."}`

	id := record(t, e, sine(440, 0.5, 0.5))
	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if res.Text != "Hello, world." {
		t.Errorf("text = %q", res.Text)
	}

	rec, _ := e.requests.Get(id)
	if rec.RawTranscript != "hello world" || rec.FinalText != "Hello, world." {
		t.Errorf("record = %+v", rec)
	}
	if rec.LlmProvider != "fake" {
		t.Errorf("llm provider = %q", rec.LlmProvider)
	}
}

func TestRewriteFailureEntersError(t *testing.T) {
	settings := testSettings()
	settings.Llm.Enabled = true
	e := newEnv(t, settings)
	e.llm.err = errors.New("llm down")

	id := record(t, e, sine(440, 0.5, 0.5))
	_, err := e.machine.StopAndTranscribe(context.Background())
	if err == nil {
		t.Fatal("want rewrite failure")
	}

	st := e.machine.State()
	if st.Phase != PhaseError || st.RequestID != id {
		t.Fatalf("state = %+v", st)
	}
	if _, ok, _ := e.retained.Get(context.Background(), id); !ok {
		t.Error("audio not retained after rewrite failure")
	}
}

func TestEmptyTranscriptSkipsRewrite(t *testing.T) {
	settings := testSettings()
	settings.Llm.Enabled = true
	e := newEnv(t, settings)
	e.stt.set("", nil, 0)

	record(t, e, sine(440, 0.5, 0.5))
	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("text = %q", res.Text)
	}
	if e.llm.Calls() != 0 {
		t.Error("rewrite must not run on an empty transcript")
	}
}

func TestForceResetFromError(t *testing.T) {
	settings := testSettings()
	settings.Stt.Timeout = 30 * time.Millisecond
	e := newEnv(t, settings)
	e.stt.set("late", nil, 2*time.Second)

	record(t, e, sine(440, 0.5, 0.5))
	if _, err := e.machine.StopAndTranscribe(context.Background()); err == nil {
		t.Fatal("want failure")
	}
	calls := e.stt.Calls()

	e.machine.ForceReset()
	st := e.machine.State()
	if st.Phase != PhaseIdle || st.ErrorMessage != "" || st.RequestID != "" {
		t.Fatalf("state = %+v", st)
	}
	if e.stt.Calls() != calls {
		t.Error("reset must not trigger provider calls")
	}
}

func TestForceResetSupersedesInFlightCycle(t *testing.T) {
	e := newEnv(t, testSettings())
	e.stt.started = make(chan struct{}, 1)
	e.stt.release = make(chan struct{})

	id := record(t, e, sine(440, 0.5, 0.5))

	done := make(chan error, 1)
	go func() {
		_, err := e.machine.StopAndTranscribe(context.Background())
		done <- err
	}()

	select {
	case <-e.stt.started:
	case <-time.After(time.Second):
		t.Fatal("stt call never started")
	}

	e.machine.ForceReset()
	close(e.stt.release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("err = %v, want ErrSuperseded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cycle never returned")
	}

	if st := e.machine.State(); st.Phase != PhaseIdle {
		t.Errorf("phase = %s", st.Phase)
	}
	rec, _ := e.requests.Get(id)
	if rec.Status != requestlog.StatusCancelled {
		t.Errorf("status = %s, want cancelled", rec.Status)
	}
}

func TestDeliveryFailureIsNonFatal(t *testing.T) {
	e := newEnv(t, testSettings())
	e.sink.err = errors.New("typing daemon gone")

	id := record(t, e, sine(440, 0.5, 0.5))
	res, err := e.machine.StopAndTranscribe(context.Background())
	if err != nil {
		t.Fatalf("StopAndTranscribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("text = %q", res.Text)
	}
	rec, _ := e.requests.Get(id)
	if rec.Status != requestlog.StatusSuccess {
		t.Errorf("status = %s", rec.Status)
	}
}

func TestPushAudioWhenIdle(t *testing.T) {
	e := newEnv(t, testSettings())
	if err := e.machine.PushAudio(sine(440, 0.1, 0.5)); !errors.Is(err, shared.ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
}
