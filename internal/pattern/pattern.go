// Package pattern maps one particle and the current spectrum to a position
// and a color. Mapping is pure: the same inputs always give the same output.
package pattern

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Mode selects how particle indices are spread over angles.
type Mode int

const (
	// Spiral winds particles around a flat disc that ripples in z.
	Spiral Mode = iota
	// Sphere places each frequency bin on its own latitude of a globe.
	Sphere
)

func (m Mode) String() string {
	switch m {
	case Spiral:
		return "spiral"
	case Sphere:
		return "sphere"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "spiral":
		return Spiral, nil
	case "sphere":
		return Sphere, nil
	default:
		return 0, fmt.Errorf("pattern: unknown mode %q", s)
	}
}

// Mapper holds the shape parameters for one session.
type Mapper struct {
	Mode         Mode
	Winding      int
	RadiusScale  float64
	RadiusOffset float64
	ZAmplitude   float64
}

// palette caches the color for every byte magnitude.
var palette = func() (p [256]colorful.Color) {
	for v := 1; v < 256; v++ {
		p[v] = colorful.Hsl(math.Mod(Hue(byte(v)), 360), 1, 0.5)
	}
	return p
}()

// Hue maps a magnitude onto [0, 360] degrees. 255 lands on 360, which is red
// again once wrapped.
func Hue(value byte) float64 {
	return float64(value) / 255 * 360
}

// Color is the particle color for a magnitude. Silence (0) is black.
func Color(value byte) colorful.Color {
	return palette[value]
}

// FreqIndex is the spectrum bin that drives particle i. Bins are tiled
// across the field with no interpolation.
func FreqIndex(i int, bins int) int {
	if bins <= 0 {
		return 0
	}
	return i % bins
}

// Radius rescales a magnitude and takes its absolute value.
func (m Mapper) Radius(value byte) float64 {
	return math.Abs(float64(value)/255*m.RadiusScale + m.RadiusOffset)
}

// Map computes particle i of n for the given spectrum and elapsed seconds.
// A nil or empty sample is treated as all zeros.
func (m Mapper) Map(i, n int, sample []byte, t float64) (mgl32.Vec3, colorful.Color) {
	bins := len(sample)
	freqIndex := FreqIndex(i, bins)
	var value byte
	if bins > 0 {
		value = sample[freqIndex]
	}
	r := m.Radius(value)
	frac := float64(i) / float64(n)

	var x, y, z float64
	switch m.Mode {
	case Sphere:
		theta := frac * 2 * math.Pi
		phi := math.Pi
		if bins > 0 {
			phi = math.Acos(2*float64(freqIndex)/float64(bins) - 1)
		}
		x = r * math.Sin(phi) * math.Cos(theta)
		y = r * math.Sin(phi) * math.Sin(theta)
		z = r * math.Cos(phi)
	default:
		theta := frac * 2 * math.Pi * float64(m.Winding)
		x = r * math.Cos(theta)
		y = r * math.Sin(theta)
		z = math.Sin(3*theta+t) * m.ZAmplitude
	}
	return mgl32.Vec3{float32(x), float32(y), float32(z)}, Color(value)
}
