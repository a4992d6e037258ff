// Package field owns the particle buffers handed to the renderer.
package field

import (
	"math"
	"math/rand/v2"

	"github.com/iburimskiy/cymatic/internal/pattern"
)

// Field is a point cloud of Count particles. Positions and colors are flat
// xyz / rgb buffers, both 3*Count long.
type Field struct {
	mapper    pattern.Mapper
	rng       *rand.Rand
	seedRange float64

	positions []float32
	colors    []float32
	size      float32
	dirty     bool
}

// New creates a field and seeds it with count particles.
func New(count int, size float32, mapper pattern.Mapper, seed uint64, seedRadius float64) *Field {
	f := &Field{
		mapper:    mapper,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seedRange: seedRadius,
		size:      size,
	}
	f.Regenerate(count)
	return f
}

// Regenerate replaces both buffers with fresh ones for count particles.
// Positions start on a random disc and colors start white.
func (f *Field) Regenerate(count int) {
	positions := make([]float32, 3*count)
	colors := make([]float32, 3*count)
	for i := 0; i < count; i++ {
		theta := f.rng.Float64() * 2 * math.Pi
		radius := f.rng.Float64() * f.seedRange
		positions[i*3] = float32(radius * math.Cos(theta))
		positions[i*3+1] = float32(radius * math.Sin(theta))
		positions[i*3+2] = float32(f.rng.Float64()*10 - 5)

		colors[i*3] = 1
		colors[i*3+1] = 1
		colors[i*3+2] = 1
	}
	f.positions = positions
	f.colors = colors
	f.dirty = true
}

// UpdateFrame maps every particle for the given spectrum and time and returns
// the summed magnitudes of the particles driven by the upper (high) and lower
// (low) half of the spectrum.
func (f *Field) UpdateFrame(sample []byte, t float64) (high, low float64) {
	n := f.Count()
	bins := len(sample)
	for i := 0; i < n; i++ {
		pos, col := f.mapper.Map(i, n, sample, t)
		f.positions[i*3] = pos[0]
		f.positions[i*3+1] = pos[1]
		f.positions[i*3+2] = pos[2]
		f.colors[i*3] = float32(col.R)
		f.colors[i*3+1] = float32(col.G)
		f.colors[i*3+2] = float32(col.B)

		if bins == 0 {
			continue
		}
		freqIndex := pattern.FreqIndex(i, bins)
		if 2*freqIndex > bins {
			high += float64(sample[freqIndex])
		} else {
			low += float64(sample[freqIndex])
		}
	}
	f.dirty = true
	return high, low
}

// SetSize changes the point size without touching the buffers.
func (f *Field) SetSize(size float32) { f.size = size }

func (f *Field) Size() float32          { return f.size }
func (f *Field) Count() int             { return len(f.positions) / 3 }
func (f *Field) Positions() []float32   { return f.positions }
func (f *Field) Colors() []float32      { return f.colors }
func (f *Field) Mapper() pattern.Mapper { return f.mapper }

// Dirty reports whether the buffers changed since the last Clean.
func (f *Field) Dirty() bool { return f.dirty }

// Clean is called by renderers once they have uploaded the buffers.
func (f *Field) Clean() { f.dirty = false }
