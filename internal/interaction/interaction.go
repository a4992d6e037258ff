// Package interaction tracks keyboard-driven toggles, held movement keys and
// the tunable particle parameters.
package interaction

import (
	"fmt"
	"math"
	"strings"

	"github.com/iburimskiy/cymatic/internal/camera"
)

// Action is what a bound key does.
type Action int

const (
	None Action = iota
	ToggleRotate
	ToggleColorCycle
	TogglePause
	Recenter
	CountUp
	CountDown
	SizeUp
	SizeDown
	MoveForward
	MoveBackward
	MoveLeft
	MoveRight
	StartCapture
	OpenFile
	Quit
)

var actionNames = map[string]Action{
	"rotate":      ToggleRotate,
	"color_cycle": ToggleColorCycle,
	"pause":       TogglePause,
	"recenter":    Recenter,
	"count_up":    CountUp,
	"count_down":  CountDown,
	"size_up":     SizeUp,
	"size_down":   SizeDown,
	"forward":     MoveForward,
	"backward":    MoveBackward,
	"left":        MoveLeft,
	"right":       MoveRight,
	"capture":     StartCapture,
	"open_file":   OpenFile,
	"quit":        Quit,
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "none"
}

// Bindings maps lowercase key names to actions.
type Bindings map[string]Action

// ParseBindings converts a key→action-name table, as found in the config file.
func ParseBindings(keys map[string]string) (Bindings, error) {
	b := make(Bindings, len(keys))
	for key, name := range keys {
		a, ok := actionNames[name]
		if !ok {
			return nil, fmt.Errorf("interaction: key %q bound to unknown action %q", key, name)
		}
		b[strings.ToLower(key)] = a
	}
	return b, nil
}

func (a Action) movement() bool {
	return a >= MoveForward && a <= MoveRight
}

// State is the interaction state read once per frame.
type State struct {
	RotateByFrequency bool
	ColorCycle        bool
	Paused            bool
	Movement          camera.Movement

	bindings Bindings
	held     map[string]bool
}

func NewState(b Bindings) *State {
	return &State{bindings: b, held: make(map[string]bool)}
}

// KeyDown handles a key press and returns the action that fired, if any.
// Key repeat while a key is held is ignored, so toggles flip once per press.
func (s *State) KeyDown(key string) Action {
	key = strings.ToLower(key)
	a := s.bindings[key]
	if s.held[key] {
		return None
	}
	s.held[key] = true

	switch a {
	case ToggleRotate:
		s.RotateByFrequency = !s.RotateByFrequency
	case ToggleColorCycle:
		s.ColorCycle = !s.ColorCycle
	case TogglePause:
		s.Paused = !s.Paused
	case MoveForward, MoveBackward, MoveLeft, MoveRight:
		s.setMovement(a, true)
	}
	return a
}

// KeyUp releases a key; movement stops while nothing holds it.
func (s *State) KeyUp(key string) {
	key = strings.ToLower(key)
	delete(s.held, key)
	if a := s.bindings[key]; a.movement() {
		s.setMovement(a, false)
	}
}

func (s *State) setMovement(a Action, on bool) {
	switch a {
	case MoveForward:
		s.Movement.Forward = on
	case MoveBackward:
		s.Movement.Backward = on
	case MoveLeft:
		s.Movement.Left = on
	case MoveRight:
		s.Movement.Right = on
	}
}

// Params are the particle count and point size.
type Params struct {
	Count     int
	Size      float64
	CountMin  int
	CountStep int
	SizeMin   float64
	SizeStep  float64
}

// AdjustCount moves the count by steps increments, never below CountMin.
// It reports whether the count changed.
func (p *Params) AdjustCount(steps int) bool {
	n := p.Count + steps*p.CountStep
	if n < p.CountMin {
		n = p.CountMin
	}
	changed := n != p.Count
	p.Count = n
	return changed
}

// AdjustSize moves the size by steps increments, never below SizeMin. Sizes
// are kept on a one-decimal grid.
func (p *Params) AdjustSize(steps int) bool {
	s := math.Round((p.Size+float64(steps)*p.SizeStep)*10) / 10
	if s < p.SizeMin {
		s = p.SizeMin
	}
	changed := s != p.Size
	p.Size = s
	return changed
}
