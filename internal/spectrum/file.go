package spectrum

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// output is the process-wide audio device. Tests swap it for a fake.
type output interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Lock()
	Unlock()
	Clear()
	Play(s ...beep.Streamer)
}

type speakerOutput struct{}

func (speakerOutput) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}

func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }
func (speakerOutput) Clear()                  { speaker.Clear() }
func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }

var out output = speakerOutput{}

// speaker is process-wide in beep; remember how it was initialised.
var speakerState struct {
	mu   sync.Mutex
	init bool
	rate beep.SampleRate
}

// FileSource plays a decoded audio file through the speaker and analyses
// what has just been played.
type FileSource struct {
	path     string
	file     *os.File
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	format   beep.Format
	ring     *ring
	analyser *Analyser
	done     atomic.Bool
}

func decode(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext := strings.ToLower(filepath.Ext(f.Name())); ext {
	case ".wav":
		return wav.Decode(f)
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// OpenFile decodes path (wav, mp3 or flac) and starts playback.
func OpenFile(path string, cfg CaptureConfig) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	src := &FileSource{
		path:     path,
		file:     f,
		streamer: streamer,
		format:   format,
		ring:     newRing(cfg.RingSize),
		analyser: NewAnalyser(cfg.Analyser),
	}
	src.ctrl = &beep.Ctrl{Streamer: newVisualTap(streamer, src.ring)}

	if err := initSpeaker(format.SampleRate); err != nil {
		_ = streamer.Close()
		_ = f.Close()
		return nil, err
	}
	out.Play(beep.Seq(src.ctrl, beep.Callback(func() {
		src.done.Store(true)
	})))
	return src, nil
}

func initSpeaker(rate beep.SampleRate) error {
	speakerState.mu.Lock()
	defer speakerState.mu.Unlock()

	bufferSize := rate.N(time.Second / 20)
	switch {
	case !speakerState.init:
		if err := out.Init(rate, bufferSize); err != nil {
			return fmt.Errorf("speaker init: %w", err)
		}
		speakerState.init = true
	case speakerState.rate != rate:
		// A new rate means a new device buffer; whatever played is dropped.
		out.Lock()
		out.Clear()
		out.Unlock()
		if err := out.Init(rate, bufferSize); err != nil {
			return fmt.Errorf("speaker init: %w", err)
		}
	default:
		// One file plays at a time.
		out.Lock()
		out.Clear()
		out.Unlock()
	}
	speakerState.rate = rate
	return nil
}

// Name is the base name of the file being played.
func (s *FileSource) Name() string { return filepath.Base(s.path) }

// Sample analyses the most recently played audio. After playback ends the
// spectrum decays towards silence.
func (s *FileSource) Sample() (Sample, bool) {
	frame := s.analyser.Frame()
	if s.done.Load() {
		for i := range frame {
			frame[i] = 0
		}
		return s.analyser.Analyse(), true
	}
	if !s.ring.snapshot(frame) {
		return nil, false
	}
	return s.analyser.Analyse(), true
}

// Progress reports the playback position and the length of the file.
func (s *FileSource) Progress() (position, length time.Duration) {
	out.Lock()
	pos, n := s.streamer.Position(), s.streamer.Len()
	out.Unlock()
	return s.format.SampleRate.D(pos), s.format.SampleRate.D(n)
}

// SetPaused pauses or resumes playback.
func (s *FileSource) SetPaused(paused bool) {
	out.Lock()
	s.ctrl.Paused = paused
	out.Unlock()
}

// Close stops this file only. A file opened after it keeps playing, so the
// streamer is detached rather than the speaker cleared.
func (s *FileSource) Close() error {
	out.Lock()
	s.ctrl.Streamer = nil
	out.Unlock()
	err := s.streamer.Close()
	// Decoders that own the reader close the file themselves.
	if ferr := s.file.Close(); ferr != nil && !errors.Is(ferr, os.ErrClosed) {
		err = errors.Join(err, ferr)
	}
	return err
}
