// Package visualizer runs one visualization session: it applies queued
// input, maps the spectrum onto the particle field and hands frames to a
// renderer.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/iburimskiy/cymatic/internal/camera"
	"github.com/iburimskiy/cymatic/internal/config"
	"github.com/iburimskiy/cymatic/internal/field"
	"github.com/iburimskiy/cymatic/internal/interaction"
	"github.com/iburimskiy/cymatic/internal/orbit"
	"github.com/iburimskiy/cymatic/internal/pattern"
	"github.com/iburimskiy/cymatic/internal/spectrum"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrQuit is returned by Step once the quit key has been pressed.
var ErrQuit = errors.New("visualizer: quit requested")

// SourceOpener opens audio sources. Its methods may block and are always
// called from a separate goroutine.
type SourceOpener interface {
	Microphone() (spectrum.FrequencyProvider, error)
	File(path string) (spectrum.FrequencyProvider, error)
	ChooseFile() (string, error)
}

// pauser is implemented by providers whose playback follows the pause key.
type pauser interface {
	SetPaused(paused bool)
}

type progresser interface {
	Progress() (position, length time.Duration)
}

type Options struct {
	Config   *config.Config
	Renderer Renderer
	Opener   SourceOpener
	// Provider, when set, is used from the start instead of the configured
	// source.
	Provider spectrum.FrequencyProvider
	Log      *slog.Logger
	Now      func() time.Time
}

// Session owns all visualization state. Only Post is safe to call from
// other goroutines; everything else runs on the loop goroutine.
type Session struct {
	cfg      *config.Config
	log      *slog.Logger
	now      func() time.Time
	renderer Renderer
	opener   SourceOpener
	queue    queue

	field    *field.Field
	state    *interaction.State
	params   interaction.Params
	orbit    *orbit.Controller
	camera   *camera.Rig
	provider spectrum.FrequencyProvider

	start      time.Time
	rotX, rotY float32
	running    bool
	redraw     bool
	quit       bool

	source  string
	opening bool
	lastErr error
}

func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Renderer == nil {
		return nil, errors.New("visualizer: renderer is required")
	}
	mode, err := pattern.ParseMode(cfg.Pattern.Mode)
	if err != nil {
		return nil, err
	}
	bindings, err := interaction.ParseBindings(cfg.Keys)
	if err != nil {
		return nil, err
	}
	logger := opts.Log
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	mapper := pattern.Mapper{
		Mode:         mode,
		Winding:      cfg.Pattern.Winding,
		RadiusScale:  cfg.Pattern.RadiusScale,
		RadiusOffset: cfg.Pattern.RadiusOffset,
		ZAmplitude:   cfg.Pattern.ZAmplitude,
	}
	params := interaction.Params{
		Count:     cfg.Particles.Count,
		Size:      cfg.Particles.Size,
		CountMin:  config.ParticleCountMin,
		CountStep: config.ParticleCountStep,
		SizeMin:   config.ParticleSizeMin,
		SizeStep:  config.ParticleSizeStep,
	}
	home := cfg.Camera.Home

	s := &Session{
		cfg:      cfg,
		log:      logger,
		now:      now,
		renderer: opts.Renderer,
		opener:   opts.Opener,
		field:    field.New(params.Count, float32(params.Size), mapper, cfg.Particles.Seed, config.SeedRadius),
		state:    interaction.NewState(bindings),
		params:   params,
		orbit:    orbit.New(),
		camera: camera.New(camera.Config{
			Home:      mgl32.Vec3{float32(home[0]), float32(home[1]), float32(home[2])},
			FOV:       float32(cfg.Camera.FOV),
			Near:      float32(cfg.Camera.Near),
			Far:       float32(cfg.Camera.Far),
			WheelZoom: float32(cfg.Camera.WheelZoom),
			PinchZoom: float32(cfg.Camera.PinchZoom),
			FlyStep:   float32(cfg.Camera.FlyStep),
		}, cfg.Window.Width, cfg.Window.Height),
		start:   now(),
		running: true,
	}

	if opts.Provider != nil {
		s.provider = opts.Provider
		s.source = "custom"
		return s, nil
	}
	switch cfg.Audio.Source {
	case config.SourceSynthetic:
		s.provider = spectrum.NewSynthetic(cfg.Audio.FFTSize/2, now)
		s.source = "synthetic"
	case config.SourceMic:
		s.requestCapture()
	case config.SourceFile:
		s.openFile(cfg.Audio.File)
	}
	return s, nil
}

// Post queues a command for the next step. Safe for concurrent use.
// Commands posted after Close are dropped.
func (s *Session) Post(c Command) { s.queue.post(c) }

// Start resumes frame production.
func (s *Session) Start() { s.running = true }

// Stop halts frame production. Commands are still applied, so a later
// command can start the loop again.
func (s *Session) Stop() { s.running = false }

func (s *Session) Running() bool { return s.running }

// Field exposes the particle field, mainly for tests and renderers.
func (s *Session) Field() *field.Field { return s.field }

func (s *Session) Camera() *camera.Rig { return s.camera }

func (s *Session) Orbit() *orbit.Controller { return s.orbit }

func (s *Session) State() *interaction.State { return s.state }

// Rotation is the automatic rotation accumulated about X and Y.
func (s *Session) Rotation() (x, y float32) { return s.rotX, s.rotY }

func (s *Session) Status() Status {
	st := Status{
		Count:             s.field.Count(),
		Size:              s.params.Size,
		Mode:              s.field.Mapper().Mode.String(),
		RotateByFrequency: s.state.RotateByFrequency,
		ColorCycle:        s.state.ColorCycle,
		Paused:            s.state.Paused,
		Source:            s.source,
		Opening:           s.opening,
		Err:               s.lastErr,
	}
	if p, ok := s.provider.(progresser); ok {
		st.Position, st.Length = p.Progress()
	}
	return st
}

// Step applies queued commands and, while running, computes and submits one
// frame for wall-clock time now.
func (s *Session) Step(now time.Time) error {
	for _, c := range s.queue.drain() {
		s.apply(c)
	}
	if s.quit {
		return ErrQuit
	}
	if !s.running {
		if s.redraw {
			s.redraw = false
			return s.submit(s.lastTint(now))
		}
		return nil
	}
	return s.tick(now)
}

// Run steps the session on a ticker until ctx is done or quit is pressed.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Step(s.now()); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// Close releases the current audio source and any source that finished
// opening but was never applied. Sources still opening are released as soon
// as they are ready.
func (s *Session) Close() error {
	var errs []error
	for _, c := range s.queue.close() {
		if c, ok := c.(SourceReady); ok {
			errs = append(errs, spectrum.Close(c.Provider))
		}
	}
	if s.provider != nil {
		errs = append(errs, spectrum.Close(s.provider))
		s.provider = nil
	}
	return errors.Join(errs...)
}

func (s *Session) tick(now time.Time) error {
	t := s.elapsed(now)

	var sample spectrum.Sample
	if s.provider != nil {
		if smp, ok := s.provider.Sample(); ok {
			sample = smp
		}
	}

	high, low := s.field.UpdateFrame(sample, t)
	dx, dy := RotationStep(s.cfg.Rotation, s.state.RotateByFrequency, high, low)
	s.rotX += dx
	s.rotY += dy
	s.camera.Fly(s.state.Movement)

	return s.submit(s.tint(t))
}

func (s *Session) submit(tint colorful.Color) error {
	auto := mgl32.AnglesToQuat(s.rotX, s.rotY, 0, mgl32.XYZ)
	model := s.orbit.Rotation().Mul(auto).Mat4()
	err := s.renderer.SubmitFrame(Frame{
		Field:      s.field,
		Model:      model,
		View:       s.camera.View(),
		Projection: s.camera.Projection(),
		Tint:       tint,
		Status:     s.Status(),
	})
	if err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	return nil
}

// RotationStep is the automatic rotation for one frame. Without frequency
// rotation the field turns slowly about both axes. With it, the field turns
// about X when the upper half of the spectrum is louder and about Y
// otherwise, ties included.
func RotationStep(cfg config.RotationConfig, byFrequency bool, high, low float64) (dx, dy float32) {
	if !byFrequency {
		return float32(cfg.IdleX), float32(cfg.IdleY)
	}
	if high > low {
		return float32(cfg.FrequencyStep), 0
	}
	return 0, float32(cfg.FrequencyStep)
}

func (s *Session) tint(t float64) colorful.Color {
	if !s.state.ColorCycle {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	hue := math.Mod(t*s.cfg.Rotation.ColorCycleSpeed*360, 360)
	return colorful.Hsl(hue, 1, 0.5)
}

func (s *Session) lastTint(now time.Time) colorful.Color {
	return s.tint(s.elapsed(now))
}

func (s *Session) elapsed(now time.Time) float64 {
	return now.Sub(s.start).Seconds()
}
