package spectrum

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// CaptureConfig sizes the capture ring and the analyser behind it.
type CaptureConfig struct {
	SampleRate int
	RingSize   int
	Analyser   AnalyserConfig
}

// Microphone streams the default input device into a ring buffer and
// analyses the most recent frame on demand.
type Microphone struct {
	stream   *portaudio.Stream
	ring     *ring
	analyser *Analyser
	buf      []float64
}

// OpenMicrophone initialises portaudio and starts a mono input stream.
func OpenMicrophone(cfg CaptureConfig) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	m := &Microphone{
		ring:     newRing(cfg.RingSize),
		analyser: NewAnalyser(cfg.Analyser),
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), cfg.Analyser.FFTSize, m.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input %q: %w", dev.Name, err)
	}
	m.stream = stream
	return m, nil
}

// process runs on the portaudio callback thread.
func (m *Microphone) process(in []float32) {
	if cap(m.buf) < len(in) {
		m.buf = make([]float64, len(in))
	}
	buf := m.buf[:len(in)]
	for i, v := range in {
		buf[i] = float64(v)
	}
	m.ring.write(buf)
}

func (m *Microphone) Sample() (Sample, bool) {
	if !m.ring.snapshot(m.analyser.Frame()) {
		return nil, false
	}
	return m.analyser.Analyse(), true
}

func (m *Microphone) Close() error {
	var err error
	if m.stream != nil {
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		m.stream = nil
	}
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	return err
}
