// Package camera holds the viewer position and projection.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Config struct {
	Home      mgl32.Vec3
	FOV       float32 // degrees
	Near, Far float32
	WheelZoom float32
	PinchZoom float32
	FlyStep   float32
}

// Movement is the set of fly directions held this frame.
type Movement struct {
	Forward, Backward, Left, Right bool
}

// Rig is a camera looking down -z. Zoom is unclamped: the camera may pass
// through the origin.
type Rig struct {
	cfg      Config
	position mgl32.Vec3
	aspect   float32

	pinching  bool
	lastPinch float32
}

func New(cfg Config, width, height int) *Rig {
	r := &Rig{cfg: cfg, position: cfg.Home}
	r.Resize(width, height)
	return r
}

func (r *Rig) Position() mgl32.Vec3 { return r.position }
func (r *Rig) Aspect() float32      { return r.aspect }

// Wheel zooms by a browser-style wheel delta; positive moves away.
func (r *Rig) Wheel(deltaY float32) {
	r.position[2] += deltaY * r.cfg.WheelZoom
}

// PinchStart records the distance between two touch points.
func (r *Rig) PinchStart(ax, ay, bx, by float32) {
	r.pinching = true
	r.lastPinch = distance(ax, ay, bx, by)
}

// PinchMove zooms in as the fingers spread and out as they close.
func (r *Rig) PinchMove(ax, ay, bx, by float32) {
	d := distance(ax, ay, bx, by)
	if !r.pinching {
		r.pinching = true
		r.lastPinch = d
		return
	}
	r.position[2] -= (d - r.lastPinch) * r.cfg.PinchZoom
	r.lastPinch = d
}

func (r *Rig) PinchEnd() { r.pinching = false }

// Fly moves one step per held direction.
func (r *Rig) Fly(m Movement) {
	step := r.cfg.FlyStep
	if m.Forward {
		r.position[2] -= step
	}
	if m.Backward {
		r.position[2] += step
	}
	if m.Left {
		r.position[0] -= step
	}
	if m.Right {
		r.position[0] += step
	}
}

// Recenter returns to the home position.
func (r *Rig) Recenter() { r.position = r.cfg.Home }

// Resize updates the aspect ratio for the next projection.
func (r *Rig) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.aspect = float32(width) / float32(height)
}

func (r *Rig) View() mgl32.Mat4 {
	return mgl32.Translate3D(-r.position[0], -r.position[1], -r.position[2])
}

func (r *Rig) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(r.cfg.FOV), r.aspect, r.cfg.Near, r.cfg.Far)
}

func distance(ax, ay, bx, by float32) float32 {
	return float32(math.Hypot(float64(bx-ax), float64(by-ay)))
}
