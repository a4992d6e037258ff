package game

import (
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/iburimskiy/cymatic/internal/visualizer"
)

// wheelPixels converts one wheel notch into the pixel delta that browsers
// report for a line scroll.
const wheelPixels = 100

// poster is the part of a session that input needs.
type poster interface {
	Post(c visualizer.Command)
}

type input struct {
	keys     []ebiten.Key
	touchIDs []ebiten.TouchID
	touches  []visualizer.Point

	dragging     bool
	lastX, lastY int
}

func (in *input) poll(p poster) {
	in.keys = inpututil.AppendJustPressedKeys(in.keys[:0])
	for _, k := range in.keys {
		if name := keyName(k); name != "" {
			p.Post(visualizer.KeyDown{Key: name})
		}
	}
	in.keys = inpututil.AppendJustReleasedKeys(in.keys[:0])
	for _, k := range in.keys {
		if name := keyName(k); name != "" {
			p.Post(visualizer.KeyUp{Key: name})
		}
	}

	in.pollMouse(p)

	if _, dy := ebiten.Wheel(); dy != 0 {
		p.Post(visualizer.Wheel{DeltaY: wheelDelta(dy)})
	}

	in.pollTouches(p)
}

func (in *input) pollMouse(p poster) {
	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		in.dragging = true
		p.Post(visualizer.PointerDown{X: float32(x), Y: float32(y)})
	case in.dragging && (x != in.lastX || y != in.lastY):
		p.Post(visualizer.PointerMove{X: float32(x), Y: float32(y)})
	}
	// A click can press and release within one tick.
	if in.dragging && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		in.dragging = false
		p.Post(visualizer.PointerUp{})
	}
	in.lastX, in.lastY = x, y
}

func (in *input) pollTouches(p poster) {
	in.touchIDs = ebiten.AppendTouchIDs(in.touchIDs[:0])
	slices.Sort(in.touchIDs)
	cur := make([]visualizer.Point, 0, len(in.touchIDs))
	for _, id := range in.touchIDs {
		x, y := ebiten.TouchPosition(id)
		cur = append(cur, visualizer.Point{X: float32(x), Y: float32(y)})
	}
	if c, ok := touchCommand(in.touches, cur); ok {
		p.Post(c)
	}
	in.touches = cur
}

// keyName is the lowercase ebiten key name used in key bindings.
func keyName(k ebiten.Key) string {
	return strings.ToLower(k.String())
}

// wheelDelta turns an ebiten wheel offset (positive is up) into a pixel
// delta where positive scrolls down and moves the camera away.
func wheelDelta(yoff float64) float32 {
	return float32(-yoff * wheelPixels)
}

// touchCommand compares the touches of two ticks. A finger count change
// starts or ends a gesture; same count with moved fingers is a move.
func touchCommand(prev, cur []visualizer.Point) (visualizer.Touch, bool) {
	switch {
	case len(cur) > len(prev):
		return visualizer.Touch{Phase: visualizer.TouchStart, Points: cur}, true
	case len(cur) < len(prev):
		return visualizer.Touch{Phase: visualizer.TouchEnd, Points: cur}, true
	case len(cur) > 0 && !slices.Equal(prev, cur):
		return visualizer.Touch{Phase: visualizer.TouchMove, Points: cur}, true
	}
	return visualizer.Touch{}, false
}
