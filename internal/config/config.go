package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512
	TargetFPS    = 60

	// Audio analysis
	VisualRingSize  = 8192
	SampleRate      = 44100
	FFTSize         = 256
	SmoothingFactor = 0.8
	MinDecibels     = -100.0
	MaxDecibels     = -30.0

	// Particle field
	ParticleCount     = 10000
	ParticleCountStep = 1000
	ParticleCountMin  = 1000
	ParticleSize      = 1.0
	ParticleSizeStep  = 0.1
	ParticleSizeMin   = 0.1
	SeedRadius        = 50

	// Pattern
	Winding      = 3
	RadiusScale  = 50
	RadiusOffset = 0
	ZAmplitude   = 30

	// Camera
	CameraHomeZ = 150
	CameraFOV   = 75
	CameraNear  = 0.1
	CameraFar   = 1000
	WheelZoom   = 0.05
	PinchZoom   = 0.1
	FlyStep     = 1

	// Rotation
	IdleRotationX   = 0.001
	IdleRotationY   = 0.002
	FrequencyRotate = 0.01
	ColorShiftSpeed = 0.1
)

// Source kinds.
const (
	SourceMic       = "mic"
	SourceFile      = "file"
	SourceSynthetic = "synthetic"
	SourceNone      = "none"
)

// Renderer kinds.
const (
	RendererWindow   = "window"
	RendererTerminal = "terminal"
)

var (
	ErrInvalidSource   = errors.New("config: invalid audio source")
	ErrInvalidRenderer = errors.New("config: invalid renderer")
	ErrInvalidValue    = errors.New("config: invalid value")
)

type Config struct {
	Window    WindowConfig      `yaml:"window"`
	Audio     AudioConfig       `yaml:"audio"`
	Particles ParticleConfig    `yaml:"particles"`
	Pattern   PatternConfig     `yaml:"pattern"`
	Camera    CameraConfig      `yaml:"camera"`
	Rotation  RotationConfig    `yaml:"rotation"`
	Keys      map[string]string `yaml:"keys"`
}

type WindowConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Title    string `yaml:"title"`
	FPS      int    `yaml:"fps"`
	Renderer string `yaml:"renderer"`
}

type AudioConfig struct {
	Source      string  `yaml:"source"`
	File        string  `yaml:"file"`
	Prompt      bool    `yaml:"prompt"`
	SampleRate  int     `yaml:"sample_rate"`
	FFTSize     int     `yaml:"fft_size"`
	Smoothing   float64 `yaml:"smoothing"`
	MinDecibels float64 `yaml:"min_decibels"`
	MaxDecibels float64 `yaml:"max_decibels"`
	RingSize    int     `yaml:"ring_size"`
}

type ParticleConfig struct {
	Count int     `yaml:"count"`
	Size  float64 `yaml:"size"`
	Seed  uint64  `yaml:"seed"`
}

type PatternConfig struct {
	Mode         string  `yaml:"mode"`
	Winding      int     `yaml:"winding"`
	RadiusScale  float64 `yaml:"radius_scale"`
	RadiusOffset float64 `yaml:"radius_offset"`
	ZAmplitude   float64 `yaml:"z_amplitude"`
}

type CameraConfig struct {
	Home      [3]float64 `yaml:"home"`
	FOV       float64    `yaml:"fov"`
	Near      float64    `yaml:"near"`
	Far       float64    `yaml:"far"`
	WheelZoom float64    `yaml:"wheel_zoom"`
	PinchZoom float64    `yaml:"pinch_zoom"`
	FlyStep   float64    `yaml:"fly_step"`
}

type RotationConfig struct {
	IdleX           float64 `yaml:"idle_x"`
	IdleY           float64 `yaml:"idle_y"`
	FrequencyStep   float64 `yaml:"frequency_step"`
	ColorCycleSpeed float64 `yaml:"color_cycle_speed"`
}

// DefaultKeys maps key names to action names. Key names are lowercase ebiten
// key names ("a", "space", "bracketleft").
func DefaultKeys() map[string]string {
	return map[string]string{
		"r":            "rotate",
		"c":            "color_cycle",
		"p":            "pause",
		"space":        "pause",
		"h":            "recenter",
		"equal":        "count_up",
		"minus":        "count_down",
		"bracketright": "size_up",
		"bracketleft":  "size_down",
		"w":            "forward",
		"s":            "backward",
		"a":            "left",
		"d":            "right",
		"m":            "capture",
		"o":            "open_file",
		"escape":       "quit",
		"q":            "quit",
	}
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:    WindowWidth,
			Height:   WindowHeight,
			Title:    "cymatic - R: rotate mode, C: color cycle, P: pause, H: recenter, M: microphone, O: open file",
			FPS:      TargetFPS,
			Renderer: RendererWindow,
		},
		Audio: AudioConfig{
			Source:      SourceMic,
			Prompt:      true,
			SampleRate:  SampleRate,
			FFTSize:     FFTSize,
			Smoothing:   SmoothingFactor,
			MinDecibels: MinDecibels,
			MaxDecibels: MaxDecibels,
			RingSize:    VisualRingSize,
		},
		Particles: ParticleConfig{
			Count: ParticleCount,
			Size:  ParticleSize,
			Seed:  1,
		},
		Pattern: PatternConfig{
			Mode:         "spiral",
			Winding:      Winding,
			RadiusScale:  RadiusScale,
			RadiusOffset: RadiusOffset,
			ZAmplitude:   ZAmplitude,
		},
		Camera: CameraConfig{
			Home:      [3]float64{0, 0, CameraHomeZ},
			FOV:       CameraFOV,
			Near:      CameraNear,
			Far:       CameraFar,
			WheelZoom: WheelZoom,
			PinchZoom: PinchZoom,
			FlyStep:   FlyStep,
		},
		Rotation: RotationConfig{
			IdleX:           IdleRotationX,
			IdleY:           IdleRotationY,
			FrequencyStep:   FrequencyRotate,
			ColorCycleSpeed: ColorShiftSpeed,
		},
		Keys: DefaultKeys(),
	}
}

// Load reads a YAML file on top of the defaults. Keys listed in the file
// replace the default binding for that key only.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	defaults := cfg.Keys
	cfg.Keys = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	merged := defaults
	for k, v := range cfg.Keys {
		merged[strings.ToLower(k)] = v
	}
	cfg.Keys = merged
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Validate rejects values the visualizer cannot run with. Particle count and
// size below their floors are clamped rather than rejected.
func (c *Config) Validate() error {
	switch c.Audio.Source {
	case SourceMic, SourceFile, SourceSynthetic, SourceNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSource, c.Audio.Source)
	}
	if c.Audio.Source == SourceFile && c.Audio.File == "" {
		return fmt.Errorf("%w: file source requires a path", ErrInvalidSource)
	}
	switch c.Window.Renderer {
	case RendererWindow, RendererTerminal:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRenderer, c.Window.Renderer)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidValue, c.Window.Width, c.Window.Height)
	}
	if c.Window.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidValue, c.Window.FPS)
	}
	if c.Audio.FFTSize < 32 || c.Audio.FFTSize&(c.Audio.FFTSize-1) != 0 {
		return fmt.Errorf("%w: fft_size %d must be a power of two >= 32", ErrInvalidValue, c.Audio.FFTSize)
	}
	if c.Audio.RingSize < c.Audio.FFTSize {
		return fmt.Errorf("%w: ring_size %d smaller than fft_size", ErrInvalidValue, c.Audio.RingSize)
	}
	if c.Audio.MinDecibels >= c.Audio.MaxDecibels {
		return fmt.Errorf("%w: min_decibels must be below max_decibels", ErrInvalidValue)
	}
	if c.Audio.Smoothing < 0 || c.Audio.Smoothing >= 1 {
		return fmt.Errorf("%w: smoothing %v outside [0,1)", ErrInvalidValue, c.Audio.Smoothing)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate %d", ErrInvalidValue, c.Audio.SampleRate)
	}
	switch c.Pattern.Mode {
	case "spiral", "sphere":
	default:
		return fmt.Errorf("%w: pattern mode %q", ErrInvalidValue, c.Pattern.Mode)
	}
	if c.Pattern.Winding <= 0 {
		return fmt.Errorf("%w: winding %d", ErrInvalidValue, c.Pattern.Winding)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 || c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: camera projection", ErrInvalidValue)
	}
	if c.Particles.Count < ParticleCountMin {
		c.Particles.Count = ParticleCountMin
	}
	if c.Particles.Size < ParticleSizeMin {
		c.Particles.Size = ParticleSizeMin
	}
	return nil
}
