package main

import (
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/iburimskiy/cymatic/internal/spectrum"
)

// sampleAverage collects up to frames spectra, one per interval, and
// averages them bin by bin. Frames the source cannot supply yet are
// skipped; n is the number actually averaged.
func sampleAverage(p spectrum.FrequencyProvider, frames int, interval time.Duration) (avg []float64, n int) {
	for i := 0; i < frames; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		s, ok := p.Sample()
		if !ok {
			continue
		}
		if avg == nil {
			avg = make([]float64, len(s))
		}
		for k := 0; k < len(s) && k < len(avg); k++ {
			avg[k] += float64(s[k])
		}
		n++
	}
	for k := range avg {
		avg[k] /= float64(n)
	}
	return avg, n
}

func plotSpectrum(bins []float64, caption string) string {
	return asciigraph.Plot(bins,
		asciigraph.Height(12),
		asciigraph.Width(len(bins)),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(255),
		asciigraph.Caption(caption),
	)
}
