package pattern

import (
	"math"
	"testing"
)

func spiral() Mapper {
	return Mapper{Mode: Spiral, Winding: 3, RadiusScale: 50, ZAmplitude: 30}
}

func TestHue_Monotonic(t *testing.T) {
	prev := -1.0
	for v := 0; v < 256; v++ {
		h := Hue(byte(v))
		if h < prev {
			t.Fatalf("hue decreased at %d: %v < %v", v, h, prev)
		}
		if h < 0 || h > 360 {
			t.Fatalf("hue %v out of range at %d", h, v)
		}
		prev = h
	}
	if Hue(0) != 0 || Hue(255) != 360 {
		t.Errorf("expected endpoints 0 and 360, got %v and %v", Hue(0), Hue(255))
	}
}

func TestColor_Endpoints(t *testing.T) {
	black := Color(0)
	if black.R != 0 || black.G != 0 || black.B != 0 {
		t.Errorf("silence should be black, got %v", black)
	}
	red := Color(255)
	if math.Abs(red.R-1) > 1e-9 || red.G > 1e-9 || red.B > 1e-9 {
		t.Errorf("full magnitude should be red, got %v", red)
	}
	mid := Color(85) // 120 degrees
	if mid.G < 0.99 || mid.R > 0.01 || mid.B > 0.01 {
		t.Errorf("magnitude 85 should be green, got %v", mid)
	}
}

func TestFreqIndex(t *testing.T) {
	tests := []struct{ i, bins, want int }{
		{0, 128, 0},
		{127, 128, 127},
		{128, 128, 0},
		{9999, 128, 9999 % 128},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := FreqIndex(tt.i, tt.bins); got != tt.want {
			t.Errorf("FreqIndex(%d, %d) = %d, want %d", tt.i, tt.bins, got, tt.want)
		}
	}
}

func TestRadius_Offset(t *testing.T) {
	m := spiral()
	if m.Radius(0) != 0 || m.Radius(255) != 50 {
		t.Errorf("expected radii 0 and 50, got %v and %v", m.Radius(0), m.Radius(255))
	}
	// A negative offset folds the scale around zero, so both ends are far out.
	m.RadiusOffset = -25
	if m.Radius(0) != 25 || m.Radius(255) != 25 {
		t.Errorf("expected folded radii 25 and 25, got %v and %v", m.Radius(0), m.Radius(255))
	}
}

func TestMap_Spiral(t *testing.T) {
	m := spiral()
	sample := make([]byte, 128)
	sample[0] = 255

	pos, col := m.Map(0, 1000, sample, 0)
	if math.Abs(float64(pos.X())-50) > 1e-4 || math.Abs(float64(pos.Y())) > 1e-4 {
		t.Errorf("particle 0 should sit on the x axis at r=50, got %v", pos)
	}
	if pos.Z() != 0 {
		t.Errorf("z = sin(0)*30 should be 0, got %v", pos.Z())
	}
	if col.R < 0.99 {
		t.Errorf("expected red, got %v", col)
	}

	// Particle 1 reads bin 1, which is silent.
	pos, col = m.Map(1, 1000, sample, 0)
	if math.Hypot(float64(pos.X()), float64(pos.Y())) > 1e-6 {
		t.Errorf("silent bin should collapse to radius 0, got %v", pos)
	}
	if col.R != 0 || col.G != 0 || col.B != 0 {
		t.Errorf("silent bin should be black, got %v", col)
	}
}

func TestMap_SpiralDepthOscillates(t *testing.T) {
	m := spiral()
	a, _ := m.Map(10, 1000, nil, 0)
	b, _ := m.Map(10, 1000, nil, 1)
	if a.Z() == b.Z() {
		t.Errorf("z should vary with time")
	}
	if math.Abs(float64(b.Z())) > 30 {
		t.Errorf("z beyond amplitude: %v", b.Z())
	}
}

func TestMap_SphereRadius(t *testing.T) {
	m := Mapper{Mode: Sphere, Winding: 3, RadiusScale: 50}
	sample := make([]byte, 128)
	for i := range sample {
		sample[i] = 255
	}
	for _, i := range []int{0, 17, 64, 127, 500} {
		pos, _ := m.Map(i, 1000, sample, 3.7)
		if r := pos.Len(); math.Abs(float64(r)-50) > 1e-3 {
			t.Errorf("particle %d: expected shell radius 50, got %v", i, r)
		}
	}
	// Bin 0 sits on the south pole.
	pos, _ := m.Map(0, 1000, sample, 0)
	if math.Abs(float64(pos.Z())+50) > 1e-3 {
		t.Errorf("bin 0 should map to z=-50, got %v", pos)
	}
}

func TestMap_Deterministic(t *testing.T) {
	m := spiral()
	sample := []byte{10, 200, 33, 90}
	for i := 0; i < 100; i++ {
		p1, c1 := m.Map(i, 100, sample, 2.5)
		p2, c2 := m.Map(i, 100, sample, 2.5)
		if p1 != p2 || c1 != c2 {
			t.Fatalf("particle %d: mapping is not deterministic", i)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Spiral, Sphere} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("round trip %v: got %v, %v", m, got, err)
		}
	}
	if _, err := ParseMode("torus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
