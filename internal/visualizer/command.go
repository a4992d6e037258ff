package visualizer

import (
	"sync"

	"github.com/iburimskiy/cymatic/internal/spectrum"
)

// Command is an input or audio event waiting to be applied at the start of
// the next step.
type Command interface{ isCommand() }

type (
	KeyDown struct{ Key string }
	KeyUp   struct{ Key string }

	PointerDown struct{ X, Y float32 }
	PointerMove struct{ X, Y float32 }
	PointerUp   struct{}

	// Touch carries every active touch point after a touch event. Phase
	// tells which kind of event produced it.
	Touch struct {
		Phase  TouchPhase
		Points []Point
	}

	// Wheel is a browser-style wheel delta in pixels; positive scrolls down.
	Wheel struct{ DeltaY float32 }

	Resize struct{ Width, Height int }

	// SourceReady replaces the current frequency provider.
	SourceReady struct {
		Provider spectrum.FrequencyProvider
		Name     string
	}
	// SourceFailed reports a capture or file error.
	SourceFailed struct {
		Name string
		Err  error
	}
)

type Point struct{ X, Y float32 }

type TouchPhase int

const (
	TouchStart TouchPhase = iota
	TouchMove
	TouchEnd
)

func (KeyDown) isCommand()      {}
func (KeyUp) isCommand()        {}
func (PointerDown) isCommand()  {}
func (PointerMove) isCommand()  {}
func (PointerUp) isCommand()    {}
func (Touch) isCommand()        {}
func (Wheel) isCommand()        {}
func (Resize) isCommand()       {}
func (SourceReady) isCommand()  {}
func (SourceFailed) isCommand() {}

// queue collects commands from any goroutine. Once closed it refuses new
// commands.
type queue struct {
	mu      sync.Mutex
	pending []Command
	closed  bool
}

func (q *queue) post(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, c)
	return true
}

// drain returns the pending commands in arrival order and empties the queue.
func (q *queue) drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// close refuses further commands and returns the ones never drained.
func (q *queue) close() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	out := q.pending
	q.pending = nil
	return out
}
