package main

import (
	"strings"
	"testing"
	"time"

	"github.com/iburimskiy/cymatic/internal/spectrum"
)

type countingProvider struct {
	calls int
}

// Sample is unavailable on the first call, like a capture that has not
// filled its ring yet.
func (c *countingProvider) Sample() (spectrum.Sample, bool) {
	c.calls++
	if c.calls == 1 {
		return nil, false
	}
	return spectrum.Sample{byte(c.calls * 10), 100}, true
}

func TestSampleAverage(t *testing.T) {
	p := &countingProvider{}
	avg, n := sampleAverage(p, 3, time.Millisecond)
	if n != 2 {
		t.Fatalf("expected 2 usable frames, got %d", n)
	}
	if avg[0] != 25 || avg[1] != 100 {
		t.Errorf("expected [25 100], got %v", avg)
	}
}

func TestSampleAverage_NothingAvailable(t *testing.T) {
	avg, n := sampleAverage(spectrum.Constant(nil), 2, time.Millisecond)
	if n != 0 || avg != nil {
		t.Errorf("expected no frames, got %d %v", n, avg)
	}
}

func TestPlotSpectrum(t *testing.T) {
	out := plotSpectrum([]float64{0, 128, 255, 64}, "test caption")
	if !strings.Contains(out, "test caption") {
		t.Errorf("plot missing caption:\n%s", out)
	}
}
