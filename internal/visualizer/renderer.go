package visualizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/iburimskiy/cymatic/internal/field"
	"github.com/lucasb-eyer/go-colorful"
)

// Renderer draws one frame of the point cloud.
type Renderer interface {
	SubmitFrame(f Frame) error
}

// Frame is everything a renderer needs. The field buffers stay valid until
// the next Step.
type Frame struct {
	Field      *field.Field
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Tint multiplies every particle color; white when color cycling is off.
	Tint   colorful.Color
	Status Status
}

// MVP is the combined transform from particle space to clip space.
func (f Frame) MVP() mgl32.Mat4 {
	return f.Projection.Mul4(f.View).Mul4(f.Model)
}

// ScreenPoint is one particle projected onto a width x height viewport with
// the origin in the top left corner.
type ScreenPoint struct {
	X, Y float32
	// Depth is the normalized device depth in [-1, 1]; smaller is closer.
	Depth float32
	// Size is the on-screen diameter in pixels, shrinking with distance.
	Size    float32
	R, G, B float32
}

// Project calls fn for every particle inside the view frustum. Colors are
// already multiplied by the frame tint.
func (f Frame) Project(width, height int, fn func(p ScreenPoint)) {
	if f.Field == nil || width <= 0 || height <= 0 {
		return
	}
	mvp := f.MVP()
	pos := f.Field.Positions()
	col := f.Field.Colors()
	halfW, halfH := float32(width)/2, float32(height)/2
	size := f.Field.Size()
	tr, tg, tb := float32(f.Tint.R), float32(f.Tint.G), float32(f.Tint.B)

	for i := 0; i < f.Field.Count(); i++ {
		clip := mvp.Mul4x1(mgl32.Vec4{pos[i*3], pos[i*3+1], pos[i*3+2], 1})
		w := clip.W()
		if w <= 0 {
			continue
		}
		nx, ny, nz := clip.X()/w, clip.Y()/w, clip.Z()/w
		if nx < -1 || nx > 1 || ny < -1 || ny > 1 || nz < -1 || nz > 1 {
			continue
		}
		fn(ScreenPoint{
			X:     (nx + 1) * halfW,
			Y:     (1 - ny) * halfH,
			Depth: nz,
			Size:  size * halfH / w,
			R:     col[i*3] * tr,
			G:     col[i*3+1] * tg,
			B:     col[i*3+2] * tb,
		})
	}
}

// Status is the session summary shown in a HUD line.
type Status struct {
	Count             int
	Size              float64
	Mode              string
	RotateByFrequency bool
	ColorCycle        bool
	Paused            bool
	Source            string
	Opening           bool
	Err               error
	// Position and Length are set for sources that play a file.
	Position time.Duration
	Length   time.Duration
}

func (s Status) String() string {
	parts := []string{
		fmt.Sprintf("%d particles", s.Count),
		fmt.Sprintf("size %.1f", s.Size),
		s.Mode,
	}
	if s.RotateByFrequency {
		parts = append(parts, "rotate: frequency")
	} else {
		parts = append(parts, "rotate: idle")
	}
	if s.ColorCycle {
		parts = append(parts, "color cycle")
	}
	switch {
	case s.Opening:
		parts = append(parts, "opening audio...")
	case s.Source != "" && s.Length > 0:
		parts = append(parts, fmt.Sprintf("source: %s %s/%s", s.Source, clock(s.Position), clock(s.Length)))
	case s.Source != "":
		parts = append(parts, "source: "+s.Source)
	default:
		parts = append(parts, "no audio - press M for microphone, O for a file")
	}
	if s.Paused {
		parts = append(parts, "PAUSED")
	}
	if s.Err != nil {
		parts = append(parts, "error: "+s.Err.Error())
	}
	return strings.Join(parts, " | ")
}

// clock renders d as minutes and seconds, truncated.
func clock(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
