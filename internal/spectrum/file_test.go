package spectrum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

type fakeOutput struct {
	inits   int
	playing []beep.Streamer
}

func (o *fakeOutput) Init(beep.SampleRate, int) error { o.inits++; return nil }
func (o *fakeOutput) Lock()                           {}
func (o *fakeOutput) Unlock()                         {}
func (o *fakeOutput) Clear()                          { o.playing = nil }
func (o *fakeOutput) Play(s ...beep.Streamer)         { o.playing = append(o.playing, s...) }

func useFakeOutput(t *testing.T) *fakeOutput {
	t.Helper()
	fake := &fakeOutput{}
	prev := out
	out = fake
	speakerState.init = false
	t.Cleanup(func() {
		out = prev
		speakerState.init = false
	})
	return fake
}

func writeWAV(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(4410, beep.Silence(-1)), format); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCapture() CaptureConfig {
	return CaptureConfig{
		SampleRate: 44100,
		RingSize:   1024,
		Analyser:   AnalyserConfig{FFTSize: 256, Smoothing: 0.8, MinDecibels: -100, MaxDecibels: -30},
	}
}

func TestFileSource_CloseKeepsNewerFilePlaying(t *testing.T) {
	fake := useFakeOutput(t)

	first, err := OpenFile(writeWAV(t, "first.wav"), testCapture())
	if err != nil {
		t.Fatal(err)
	}
	second, err := OpenFile(writeWAV(t, "second.wav"), testCapture())
	if err != nil {
		t.Fatal(err)
	}
	if fake.inits != 1 {
		t.Errorf("expected the speaker to be initialised once, got %d", fake.inits)
	}

	// The previous source is closed only after the new one started.
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}
	if len(fake.playing) != 1 {
		t.Fatalf("expected the second file to keep playing, got %d streamers", len(fake.playing))
	}

	buf := make([][2]float64, 512)
	if n, _ := fake.playing[0].Stream(buf); n == 0 {
		t.Fatal("second file produced no audio")
	}
	if _, ok := second.Sample(); !ok {
		t.Error("second file should have filled its ring")
	}
	if err := second.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_CloseStopsOwnPlayback(t *testing.T) {
	fake := useFakeOutput(t)

	src, err := OpenFile(writeWAV(t, "only.wav"), testCapture())
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}

	buf := make([][2]float64, 512)
	fake.playing[0].Stream(buf)
	if !src.done.Load() {
		t.Error("a closed file should finish instead of playing on")
	}
}
