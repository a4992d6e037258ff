package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/iburimskiy/cymatic/internal/config"
	"github.com/iburimskiy/cymatic/internal/game"
	"github.com/iburimskiy/cymatic/internal/spectrum"
	"github.com/iburimskiy/cymatic/internal/term"
	"github.com/iburimskiy/cymatic/internal/visualizer"
	"github.com/spf13/cobra"
)

var (
	configFile string
	source     string
	audioFile  string
	renderer   string
	particles  int
	size       float64
	pattern    string
	fps        int
	logLevel   string
	logFile    string
	noPrompt   bool

	// spectrum command
	frames   int
	interval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cymatic",
		Short:        "3D particle visualizer driven by live audio",
		SilenceUsage: true,
		RunE:         runVisualizer,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&source, "source", config.SourceMic, "audio source: mic, file, synthetic or none")
	pf.StringVar(&audioFile, "file", "", "audio file for the file source (wav, mp3, flac)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	f := rootCmd.Flags()
	f.StringVar(&renderer, "renderer", config.RendererWindow, "renderer: window or terminal")
	f.IntVar(&particles, "particles", config.ParticleCount, "initial particle count")
	f.Float64Var(&size, "size", config.ParticleSize, "initial particle size")
	f.StringVar(&pattern, "pattern", "spiral", "pattern mode: spiral or sphere")
	f.IntVar(&fps, "fps", config.TargetFPS, "frames per second")
	f.BoolVar(&noPrompt, "no-prompt", false, "open the microphone without asking first")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum",
		Short: "print the averaged frequency spectrum of a source as a graph",
		RunE:  runSpectrum,
	}
	spectrumCmd.Flags().IntVar(&frames, "frames", 30, "number of frames to average")
	spectrumCmd.Flags().DurationVar(&interval, "interval", 50*time.Millisecond, "time between frames")

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	rootCmd.AddCommand(spectrumCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies the flags the
// operator set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Audio.Source = source
	}
	if flags.Changed("file") {
		cfg.Audio.File = audioFile
		if !flags.Changed("source") {
			cfg.Audio.Source = config.SourceFile
		}
	}
	if flags.Changed("renderer") {
		cfg.Window.Renderer = renderer
	}
	if flags.Changed("particles") {
		cfg.Particles.Count = particles
	}
	if flags.Changed("size") {
		cfg.Particles.Size = size
	}
	if flags.Changed("pattern") {
		cfg.Pattern.Mode = pattern
	}
	if flags.Changed("fps") {
		cfg.Window.FPS = fps
	}
	if noPrompt {
		cfg.Audio.Prompt = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// logOutput picks where logs go. The terminal renderer owns stderr's
// terminal, so without a log file its logs are dropped.
func logOutput(cfg *config.Config) (io.Writer, func() error, error) {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
	if cfg.Window.Renderer == config.RendererTerminal {
		return io.Discard, func() error { return nil }, nil
	}
	return os.Stderr, func() error { return nil }, nil
}

func captureConfig(cfg *config.Config) spectrum.CaptureConfig {
	return spectrum.CaptureConfig{
		SampleRate: cfg.Audio.SampleRate,
		RingSize:   cfg.Audio.RingSize,
		Analyser: spectrum.AnalyserConfig{
			FFTSize:     cfg.Audio.FFTSize,
			Smoothing:   cfg.Audio.Smoothing,
			MinDecibels: cfg.Audio.MinDecibels,
			MaxDecibels: cfg.Audio.MaxDecibels,
		},
	}
}

func runVisualizer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, closeLog, err := logOutput(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	logger, err := newLogger(out)
	if err != nil {
		return err
	}

	opener := &spectrum.Opener{
		Capture: captureConfig(cfg),
		Prompt:  cfg.Audio.Prompt,
		Log:     logger,
	}

	switch cfg.Window.Renderer {
	case config.RendererTerminal:
		return runTerminal(cfg, opener, logger)
	default:
		return runWindow(cfg, opener, logger)
	}
}

func runWindow(cfg *config.Config, opener *spectrum.Opener, logger *slog.Logger) error {
	g := game.New(logger)
	session, err := visualizer.New(visualizer.Options{
		Config:   cfg,
		Renderer: g,
		Opener:   opener,
		Log:      logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()
	g.Attach(session)

	return game.Run(cfg.Window, g)
}

func runTerminal(cfg *config.Config, opener *spectrum.Opener, logger *slog.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	// Dialogs would fight the terminal for the screen.
	opener.Prompt = false

	t := term.New(screen, logger)
	session, err := visualizer.New(visualizer.Options{
		Config:   cfg,
		Renderer: t,
		Opener:   opener,
		Log:      logger,
	})
	if err != nil {
		screen.Fini()
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return t.Run(ctx, session, time.Second/time.Duration(cfg.Window.FPS))
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	var provider spectrum.FrequencyProvider
	switch cfg.Audio.Source {
	case config.SourceMic:
		provider, err = spectrum.OpenMicrophone(captureConfig(cfg))
	case config.SourceFile:
		provider, err = spectrum.OpenFile(cfg.Audio.File, captureConfig(cfg))
	case config.SourceSynthetic:
		provider = spectrum.NewSynthetic(cfg.Audio.FFTSize/2, nil)
	default:
		return errors.New("spectrum needs an audio source: use --source mic, file or synthetic")
	}
	if err != nil {
		return err
	}
	defer spectrum.Close(provider)

	logger.Info("sampling spectrum", "source", cfg.Audio.Source, "frames", frames, "interval", interval)
	avg, n := sampleAverage(provider, frames, interval)
	if n == 0 {
		return errors.New("no spectrum frames available from the source")
	}
	fmt.Println(plotSpectrum(avg, fmt.Sprintf("%s spectrum, %d frames, %d bins", cfg.Audio.Source, n, len(avg))))
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if len(args) == 0 {
		return config.Write(os.Stdout, cfg)
	}
	path := args[0]
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		path += ".yaml"
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}
