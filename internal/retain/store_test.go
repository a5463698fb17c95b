package retain

import (
	"context"
	"testing"

	"github.com/DovieW/tangerine-voice-sub000/internal/audio"
)

func captured(n int) audio.Captured {
	return audio.Captured{
		Samples:    make([]float32, n),
		SampleRate: 16000,
	}
}

func TestMemory_PutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)

	if err := m.Put(ctx, "req_1", captured(100)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := m.Get(ctx, "req_1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got.Samples) != 100 || got.SampleRate != 16000 {
		t.Errorf("got %d samples at %d Hz", len(got.Samples), got.SampleRate)
	}

	if _, ok, _ := m.Get(ctx, "req_missing"); ok {
		t.Error("missing id should not be found")
	}
}

func TestMemory_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	m.Put(ctx, "a", captured(1))
	m.Put(ctx, "b", captured(2))
	m.Put(ctx, "c", captured(3))

	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok, _ := m.Get(ctx, "b"); !ok {
		t.Error("b should survive")
	}
	if _, ok, _ := m.Get(ctx, "c"); !ok {
		t.Error("c should survive")
	}
}

func TestMemory_PutSameIDDoesNotGrow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	m.Put(ctx, "a", captured(1))
	m.Put(ctx, "a", captured(2))
	m.Put(ctx, "b", captured(3))

	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Error("re-put id should not count against capacity twice")
	}
	got, _, _ := m.Get(ctx, "a")
	if len(got.Samples) != 2 {
		t.Error("re-put should supersede the stored audio")
	}
}

func TestMemory_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)

	m.Put(ctx, "a", captured(1))
	m.Put(ctx, "b", captured(1))

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Error("deleted entry still present")
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Errorf("double delete should be a no-op, got %v", err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "b"); ok {
		t.Error("clear should drop everything")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := audio.Captured{
		Samples:    []float32{0, 0.25, -0.25, 0.75},
		SampleRate: 16000,
		Device:     "default",
		Stats: audio.Stats{
			DurationSecs:   0.5,
			RMS:            0.1,
			Peak:           0.5,
			SpeechDetected: true,
		},
	}

	data, err := encodeCaptured(in)
	if err != nil {
		t.Fatalf("encodeCaptured: %v", err)
	}
	got, err := decodeCaptured(data)
	if err != nil {
		t.Fatalf("decodeCaptured: %v", err)
	}

	if got.SampleRate != in.SampleRate || got.Device != in.Device || got.Stats != in.Stats {
		t.Errorf("metadata = %+v, want %+v", got, in)
	}
	if len(got.Samples) != len(in.Samples) {
		t.Fatalf("samples = %d, want %d", len(got.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if delta := got.Samples[i] - in.Samples[i]; delta > 0.001 || delta < -0.001 {
			t.Errorf("sample [%d]: %f -> %f", i, in.Samples[i], got.Samples[i])
		}
	}
}
