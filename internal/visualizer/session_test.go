package visualizer

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/iburimskiy/cymatic/internal/config"
	"github.com/iburimskiy/cymatic/internal/spectrum"
)

type recordRenderer struct {
	frames []Frame
}

func (r *recordRenderer) SubmitFrame(f Frame) error {
	r.frames = append(r.frames, f)
	return nil
}

type fakeOpener struct {
	mic    spectrum.FrequencyProvider
	micErr error
	file   spectrum.FrequencyProvider
	chosen string
	opened []string
	// gate, when set, holds Microphone until it is closed.
	gate chan struct{}
}

func (o *fakeOpener) Microphone() (spectrum.FrequencyProvider, error) {
	if o.gate != nil {
		<-o.gate
	}
	return o.mic, o.micErr
}

type closableProvider struct {
	spectrum.Constant
	closed atomic.Bool
}

func (p *closableProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (o *fakeOpener) File(path string) (spectrum.FrequencyProvider, error) {
	o.opened = append(o.opened, path)
	return o.file, nil
}

func (o *fakeOpener) ChooseFile() (string, error) { return o.chosen, nil }

var epoch = time.Unix(1000, 0)

func newSession(t *testing.T, p spectrum.FrequencyProvider) (*Session, *recordRenderer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Audio.Source = config.SourceNone
	r := &recordRenderer{}
	s, err := New(Options{
		Config:   cfg,
		Renderer: r,
		Provider: p,
		Now:      func() time.Time { return epoch },
	})
	if err != nil {
		t.Fatal(err)
	}
	return s, r
}

func planarRadius(pos []float32, i int) float64 {
	return math.Hypot(float64(pos[i*3]), float64(pos[i*3+1]))
}

func TestStep_ZeroSampleCollapses(t *testing.T) {
	for _, p := range []spectrum.FrequencyProvider{
		spectrum.Constant(spectrum.Uniform(128, 0)),
		spectrum.Constant(nil), // capture not started
	} {
		s, r := newSession(t, p)
		if err := s.Step(epoch); err != nil {
			t.Fatal(err)
		}
		if len(r.frames) != 1 {
			t.Fatalf("expected one frame, got %d", len(r.frames))
		}
		f := r.frames[0].Field
		if f.Count() != 10000 {
			t.Fatalf("expected default 10000 particles, got %d", f.Count())
		}
		pos, col := f.Positions(), f.Colors()
		for i := 0; i < f.Count(); i++ {
			if planarRadius(pos, i) != 0 {
				t.Fatalf("particle %d: expected radius 0", i)
			}
			if col[i*3] != 0 || col[i*3+1] != 0 || col[i*3+2] != 0 {
				t.Fatalf("particle %d: expected black", i)
			}
		}
	}
}

func TestStep_FullSampleIsRedAtMaxRadius(t *testing.T) {
	s, r := newSession(t, spectrum.Constant(spectrum.Uniform(128, 255)))
	if err := s.Step(epoch.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	f := r.frames[0].Field
	pos, col := f.Positions(), f.Colors()
	for i := 0; i < f.Count(); i++ {
		if d := math.Abs(planarRadius(pos, i) - 50); d > 1e-3 {
			t.Fatalf("particle %d: expected radius 50, got %v", i, planarRadius(pos, i))
		}
		if math.Abs(float64(col[i*3])-1) > 1e-6 || col[i*3+1] > 1e-6 || col[i*3+2] > 1e-6 {
			t.Fatalf("particle %d: expected red, got %v", i, col[i*3:i*3+3])
		}
	}
}

func TestRotationStep(t *testing.T) {
	cfg := config.DefaultConfig().Rotation
	tests := []struct {
		name      string
		byFreq    bool
		high, low float64
		wantX     float32
		wantY     float32
	}{
		{"idle", false, 100, 0, 0.001, 0.002},
		{"high dominates", true, 10, 5, 0.01, 0},
		{"low dominates", true, 5, 10, 0, 0.01},
		{"tie", true, 7, 7, 0, 0.01},
		{"silence", true, 0, 0, 0, 0.01},
	}
	for _, tt := range tests {
		x, y := RotationStep(cfg, tt.byFreq, tt.high, tt.low)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tt.name, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestStep_FrequencyRotationTieUsesY(t *testing.T) {
	s, _ := newSession(t, spectrum.Constant(spectrum.Uniform(128, 0)))
	s.Post(KeyDown{Key: "r"})
	for i := 0; i < 3; i++ {
		if err := s.Step(epoch); err != nil {
			t.Fatal(err)
		}
	}
	x, y := s.Rotation()
	if x != 0 {
		t.Errorf("silence must not rotate about X, got %v", x)
	}
	if math.Abs(float64(y)-0.03) > 1e-6 {
		t.Errorf("expected 3 Y steps, got %v", y)
	}
}

func TestStep_PauseStopsAndResumes(t *testing.T) {
	s, r := newSession(t, spectrum.Constant(spectrum.Uniform(128, 40)))
	s.Step(epoch)

	s.Post(KeyDown{Key: "p"})
	s.Step(epoch)
	if s.Running() {
		t.Fatal("pause key should stop the loop")
	}
	if n := len(r.frames); n != 2 || !r.frames[1].Status.Paused {
		t.Fatalf("expected one redraw showing the pause, got %d frames", n)
	}
	for i := 0; i < 5; i++ {
		s.Step(epoch)
	}
	if len(r.frames) != 2 {
		t.Fatalf("paused loop produced %d frames", len(r.frames))
	}

	s.Post(KeyUp{Key: "p"})
	s.Post(KeyDown{Key: "P"})
	s.Step(epoch)
	if !s.Running() {
		t.Fatal("second press should restart the loop")
	}
	if len(r.frames) != 3 {
		t.Errorf("expected a new frame after resume, got %d", len(r.frames))
	}
}

func TestStep_CountFloor(t *testing.T) {
	s, _ := newSession(t, nil)
	for i := 0; i < 15; i++ {
		s.Post(KeyDown{Key: "minus"})
		s.Post(KeyUp{Key: "minus"})
	}
	s.Step(epoch)
	if n := s.Field().Count(); n != 1000 {
		t.Errorf("expected count clamped at 1000, got %d", n)
	}
	if got := len(s.Field().Positions()); got != 3000 {
		t.Errorf("expected 3000 position floats, got %d", got)
	}

	s.Post(KeyDown{Key: "equal"})
	s.Step(epoch)
	if n := s.Field().Count(); n != 2000 {
		t.Errorf("expected 2000 after increment, got %d", n)
	}
}

func TestStep_SizeKeys(t *testing.T) {
	s, r := newSession(t, nil)
	s.Post(KeyDown{Key: "bracketleft"})
	s.Step(epoch)
	if got := r.frames[0].Field.Size(); got != 0.9 {
		t.Errorf("expected size 0.9, got %v", got)
	}
}

func TestStep_CommandsAppliedInOrder(t *testing.T) {
	s, r := newSession(t, nil)
	s.Post(Wheel{DeltaY: 100})
	s.Post(KeyDown{Key: "h"})
	s.Post(Wheel{DeltaY: 200})
	s.Step(epoch)

	if z := s.Camera().Position().Z(); z != 160 {
		t.Errorf("expected recenter between the wheels to leave z=160, got %v", z)
	}
	view := r.frames[0].View
	if view.At(2, 3) != -160 {
		t.Errorf("frame should carry the updated view, got %v", view.At(2, 3))
	}
}

func TestStep_FlyWhileHeld(t *testing.T) {
	s, _ := newSession(t, nil)
	s.Post(KeyDown{Key: "w"})
	s.Step(epoch)
	s.Step(epoch)
	s.Post(KeyUp{Key: "w"})
	s.Step(epoch)
	if z := s.Camera().Position().Z(); z != 148 {
		t.Errorf("expected two forward steps, z=%v", z)
	}
}

func TestStep_RecenterResetsOrbit(t *testing.T) {
	s, _ := newSession(t, nil)
	s.Post(PointerDown{X: 0, Y: 0})
	s.Post(PointerMove{X: 30, Y: 10})
	s.Post(PointerUp{})
	s.Step(epoch)
	if s.Orbit().Rotation() == mgl32.QuatIdent() {
		t.Fatal("drag should rotate the orbit")
	}
	s.Post(KeyDown{Key: "h"})
	s.Step(epoch)
	if s.Orbit().Rotation() != mgl32.QuatIdent() {
		t.Error("recenter should reset the orbit")
	}
}

func TestStep_TouchRouting(t *testing.T) {
	s, _ := newSession(t, nil)
	s.Post(Touch{Phase: TouchStart, Points: []Point{{0, 0}}})
	s.Post(Touch{Phase: TouchStart, Points: []Point{{0, 0}, {100, 0}}})
	s.Post(Touch{Phase: TouchMove, Points: []Point{{0, 0}, {200, 0}}})
	s.Step(epoch)

	if z := s.Camera().Position().Z(); z != 140 {
		t.Errorf("pinch should zoom in by 10, z=%v", z)
	}
	if s.Orbit().Rotation() != mgl32.QuatIdent() {
		t.Error("two-finger gestures must not orbit")
	}

	s.Post(Touch{Phase: TouchEnd, Points: []Point{{200, 0}}})
	s.Post(Touch{Phase: TouchMove, Points: []Point{{210, 0}}})
	s.Step(epoch)
	if s.Orbit().Rotation() == mgl32.QuatIdent() {
		t.Error("remaining finger should keep orbiting")
	}
}

func TestStep_ColorCycleTint(t *testing.T) {
	s, r := newSession(t, nil)
	s.Step(epoch.Add(2500 * time.Millisecond))
	white := r.frames[0].Tint
	if white.R != 1 || white.G != 1 || white.B != 1 {
		t.Errorf("tint should be white without color cycling, got %v", white)
	}

	s.Post(KeyDown{Key: "c"})
	s.Step(epoch.Add(2500 * time.Millisecond)) // hue 90
	tint := r.frames[1].Tint
	if tint.R == 1 && tint.G == 1 && tint.B == 1 {
		t.Errorf("color cycle should tint the field, got %v", tint)
	}
	if h, _, _ := tint.Hsl(); math.Abs(h-90) > 1e-6 {
		t.Errorf("expected hue 90, got %v", h)
	}
}

func TestStep_Quit(t *testing.T) {
	s, _ := newSession(t, nil)
	s.Post(KeyDown{Key: "escape"})
	if err := s.Step(epoch); !errors.Is(err, ErrQuit) {
		t.Errorf("expected ErrQuit, got %v", err)
	}
}

func stepUntil(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := s.Step(epoch); err != nil {
			t.Fatal(err)
		}
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestCapture_Granted(t *testing.T) {
	cfg := config.DefaultConfig()
	opener := &fakeOpener{mic: spectrum.Constant(spectrum.Uniform(128, 255))}
	r := &recordRenderer{}
	s, err := New(Options{Config: cfg, Renderer: r, Opener: opener, Now: func() time.Time { return epoch }})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Status().Opening {
		t.Fatal("microphone source should be requested at start")
	}
	stepUntil(t, s, func() bool { return s.Status().Source == "microphone" })

	s.Step(epoch)
	last := r.frames[len(r.frames)-1].Field
	if got := planarRadius(last.Positions(), 0); math.Abs(got-50) > 1e-3 {
		t.Errorf("live spectrum should drive the field, radius %v", got)
	}
}

func TestCapture_DeniedKeepsRunning(t *testing.T) {
	cfg := config.DefaultConfig()
	opener := &fakeOpener{micErr: spectrum.ErrPermissionDenied}
	r := &recordRenderer{}
	s, err := New(Options{Config: cfg, Renderer: r, Opener: opener, Now: func() time.Time { return epoch }})
	if err != nil {
		t.Fatal(err)
	}
	stepUntil(t, s, func() bool { return !s.Status().Opening })

	if !errors.Is(s.Status().Err, spectrum.ErrPermissionDenied) {
		t.Errorf("expected permission error in status, got %v", s.Status().Err)
	}
	if !s.Running() {
		t.Error("denial must not stop the loop")
	}
	n := len(r.frames)
	s.Step(epoch)
	if len(r.frames) != n+1 {
		t.Error("frames should keep coming with a silent spectrum")
	}

	// Operator retries explicitly.
	opener.micErr = nil
	opener.mic = spectrum.Constant(spectrum.Uniform(128, 1))
	s.Post(KeyDown{Key: "m"})
	stepUntil(t, s, func() bool { return s.Status().Source == "microphone" })
	if s.Status().Err != nil {
		t.Errorf("error should clear once capture starts, got %v", s.Status().Err)
	}
}

func TestOpenFile_UsesChosenPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.Source = config.SourceNone
	opener := &fakeOpener{chosen: "/music/song.flac", file: spectrum.Constant(spectrum.Uniform(128, 9))}
	s, err := New(Options{Config: cfg, Renderer: &recordRenderer{}, Opener: opener})
	if err != nil {
		t.Fatal(err)
	}
	s.Post(KeyDown{Key: "o"})
	stepUntil(t, s, func() bool { return s.Status().Source != "" })
	if len(opener.opened) != 1 || opener.opened[0] != "/music/song.flac" {
		t.Errorf("expected chosen file to be opened, got %v", opener.opened)
	}
}

func TestRun_StopsOnContextAndQuit(t *testing.T) {
	s, _ := newSession(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}

	s.Post(KeyDown{Key: "q"})
	if err := s.Run(context.Background(), time.Millisecond); err != nil {
		t.Errorf("quit should end Run cleanly, got %v", err)
	}
}

func TestNew_RequiresRenderer(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without renderer")
	}
}

func TestStatusString(t *testing.T) {
	st := Status{Count: 1000, Size: 0.5, Mode: "spiral", Paused: true, Err: errors.New("boom")}
	got := st.String()
	for _, want := range []string{"1000 particles", "size 0.5", "PAUSED", "error: boom", "press M"} {
		if !strings.Contains(got, want) {
			t.Errorf("status %q missing %q", got, want)
		}
	}
}

func TestClose_ReleasesSourceOpenedLate(t *testing.T) {
	mic := &closableProvider{Constant: spectrum.Constant(spectrum.Uniform(128, 255))}
	opener := &fakeOpener{mic: mic, gate: make(chan struct{})}
	s, err := New(Options{Config: config.DefaultConfig(), Renderer: &recordRenderer{}, Opener: opener})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	close(opener.gate)

	deadline := time.Now().Add(2 * time.Second)
	for !mic.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("microphone opened after Close was never released")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClose_ReleasesUnappliedSource(t *testing.T) {
	mic := &closableProvider{Constant: spectrum.Constant(spectrum.Uniform(128, 255))}
	s, err := New(Options{Config: config.DefaultConfig(), Renderer: &recordRenderer{}, Opener: &fakeOpener{mic: mic}})
	if err != nil {
		t.Fatal(err)
	}

	// Wait for the ready source to be queued without stepping the session.
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.queue.mu.Lock()
		n := len(s.queue.pending)
		s.queue.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("microphone never became ready")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !mic.closed.Load() {
		t.Error("queued source should be closed with the session")
	}
	s.Post(KeyDown{Key: "r"})
	if cmds := s.queue.drain(); len(cmds) != 0 {
		t.Errorf("commands posted after Close should be dropped, got %v", cmds)
	}
}
