package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// AnalyserConfig mirrors the knobs of a browser AnalyserNode.
type AnalyserConfig struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// Analyser converts time-domain frames into byte magnitudes: windowed FFT,
// per-bin exponential smoothing, then a linear map of decibels onto 0..255.
// It is not safe for concurrent use.
type Analyser struct {
	cfg      AnalyserConfig
	window   []float64
	frame    []float64
	smoothed []float64
	out      Sample
}

func NewAnalyser(cfg AnalyserConfig) *Analyser {
	return &Analyser{
		cfg:      cfg,
		window:   window.Hann(cfg.FFTSize),
		frame:    make([]float64, cfg.FFTSize),
		smoothed: make([]float64, cfg.FFTSize/2),
		out:      make(Sample, cfg.FFTSize/2),
	}
}

// Bins is the number of magnitudes per sample, half the FFT size.
func (a *Analyser) Bins() int { return len(a.out) }

// Frame returns the buffer Analyse reads from. Callers fill it with the most
// recent FFTSize samples.
func (a *Analyser) Frame() []float64 { return a.frame }

// Analyse transforms the current frame. The returned sample is reused by the
// next call.
func (a *Analyser) Analyse() Sample {
	n := len(a.frame)
	windowed := make([]float64, n)
	for i, v := range a.frame {
		windowed[i] = v * a.window[i]
	}
	spectrum := fft.FFTReal(windowed)

	rangeDb := a.cfg.MaxDecibels - a.cfg.MinDecibels
	tau := a.cfg.Smoothing
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
		a.out[k] = toByte(a.smoothed[k], a.cfg.MinDecibels, rangeDb)
	}
	return a.out
}

func toByte(mag, minDb, rangeDb float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - minDb) / rangeDb
	if scaled <= 0 {
		return 0
	}
	if scaled >= 255 {
		return 255
	}
	return byte(scaled)
}
