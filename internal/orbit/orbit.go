// Package orbit turns pointer drags into an accumulated rotation of the
// particle field.
package orbit

import "github.com/go-gl/mathgl/mgl32"

// Controller maps one pixel of drag to one degree of rotation: vertical
// movement pitches about X, horizontal movement yaws about Y. Each delta is
// applied in world space, before the rotation accumulated so far.
type Controller struct {
	rotation mgl32.Quat
	dragging bool
	lastX    float32
	lastY    float32
}

func New() *Controller {
	return &Controller{rotation: mgl32.QuatIdent()}
}

// Down starts a drag at the given pixel position.
func (c *Controller) Down(x, y float32) {
	c.dragging = true
	c.lastX, c.lastY = x, y
}

// Move composes the rotation for the movement since the last event. Moves
// outside a drag are ignored.
func (c *Controller) Move(x, y float32) {
	if !c.dragging {
		return
	}
	dx, dy := x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}
	delta := mgl32.AnglesToQuat(mgl32.DegToRad(dy), mgl32.DegToRad(dx), 0, mgl32.XYZ)
	c.rotation = delta.Mul(c.rotation).Normalize()
}

// Up ends the drag.
func (c *Controller) Up() { c.dragging = false }

func (c *Controller) Dragging() bool { return c.dragging }

// Rotation is the accumulated orbit.
func (c *Controller) Rotation() mgl32.Quat { return c.rotation }

// Reset returns to the identity rotation.
func (c *Controller) Reset() {
	c.rotation = mgl32.QuatIdent()
	c.dragging = false
}
