package spectrum

import (
	"math"
	"time"
)

// Synthetic produces a moving band pattern without any audio device.
type Synthetic struct {
	start time.Time
	now   func() time.Time
	out   Sample
}

func NewSynthetic(bins int, now func() time.Time) *Synthetic {
	if now == nil {
		now = time.Now
	}
	return &Synthetic{start: now(), now: now, out: make(Sample, bins)}
}

func (s *Synthetic) Sample() (Sample, bool) {
	t := s.now().Sub(s.start).Seconds()
	n := float64(len(s.out))
	for k := range s.out {
		x := float64(k) / n
		// A low-frequency hump that breathes plus a sweeping peak.
		hump := math.Exp(-x*4) * (0.6 + 0.4*math.Sin(t*1.3))
		sweep := math.Exp(-math.Pow((x-0.5-0.4*math.Sin(t*0.7))*8, 2))
		v := 255 * math.Min(1, hump+0.8*sweep)
		s.out[k] = byte(v)
	}
	return s.out, true
}
