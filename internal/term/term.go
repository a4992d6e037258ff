// Package term is the terminal backend. It draws the particle cloud as
// colored character cells on a tcell screen.
package term

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/iburimskiy/cymatic/internal/visualizer"
)

// Terminal cells are about twice as tall as wide. Frames are projected onto
// a viewport with two vertical units per row to keep the cloud round.
const rowUnits = 2

// Cell size in pixels used to scale mouse drags to the orbit's degrees per
// pixel.
const (
	cellPixelsX = 8
	cellPixelsY = 16
)

var statusStyle = tcell.StyleDefault.Reverse(true)

// Terminal implements visualizer.Renderer on a tcell screen.
type Terminal struct {
	screen tcell.Screen
	log    *slog.Logger
	depth  []float32

	mouseDown bool
	keys      *releaser
}

// New wraps an initialized screen.
func New(screen tcell.Screen, log *slog.Logger) *Terminal {
	if log == nil {
		log = slog.Default()
	}
	screen.EnableMouse()
	screen.HideCursor()
	return &Terminal{screen: screen, log: log}
}

// Viewport is the projection size for a screen of cols x rows cells. The
// last row holds the status line.
func Viewport(cols, rows int) (width, height int) {
	return cols, max(rows-1, 1) * rowUnits
}

func (t *Terminal) SubmitFrame(f visualizer.Frame) error {
	cols, rows := t.screen.Size()
	width, height := Viewport(cols, rows)

	if n := cols * rows; len(t.depth) < n {
		t.depth = make([]float32, n)
	}
	for i := range t.depth {
		t.depth[i] = math.MaxFloat32
	}

	t.screen.Clear()
	f.Project(width, height, func(p visualizer.ScreenPoint) {
		x, y := int(p.X), int(p.Y)/rowUnits
		if x < 0 || x >= cols || y < 0 || y >= rows-1 {
			return
		}
		i := y*cols + x
		if p.Depth >= t.depth[i] {
			return
		}
		t.depth[i] = p.Depth
		style := tcell.StyleDefault.Foreground(cellColor(p))
		t.screen.SetContent(x, y, glyph(p.Size), nil, style)
	})
	if f.Field != nil {
		f.Field.Clean()
	}
	drawText(t.screen, 0, rows-1, cols, f.Status.String(), statusStyle)
	t.screen.Show()
	return nil
}

// Run drives s at the given interval until quit, ctx cancellation or
// Ctrl-C. The screen is finalized before Run returns.
func (t *Terminal) Run(ctx context.Context, s *visualizer.Session, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.keys = newReleaser(s, firstHold, repeatHold)
	cols, rows := t.screen.Size()
	w, h := Viewport(cols, rows)
	s.Post(visualizer.Resize{Width: w, Height: h})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			if !t.handle(s, ev) {
				cancel()
			}
		}
	}()

	err := s.Run(ctx, interval)
	t.keys.stop()
	t.screen.Fini()
	<-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handle turns one tcell event into session commands. It returns false when
// the terminal asked to interrupt.
func (t *Terminal) handle(p poster, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if name := keyName(ev); name != "" {
			t.keys.press(name)
		}
	case *tcell.EventMouse:
		t.mouse(p, ev)
	case *tcell.EventResize:
		w, h := Viewport(ev.Size())
		p.Post(visualizer.Resize{Width: w, Height: h})
	}
	return true
}

func (t *Terminal) mouse(p poster, ev *tcell.EventMouse) {
	col, row := ev.Position()
	x, y := float32(col*cellPixelsX), float32(row*cellPixelsY)
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		p.Post(visualizer.Wheel{DeltaY: -100})
	case buttons&tcell.WheelDown != 0:
		p.Post(visualizer.Wheel{DeltaY: 100})
	}

	pressed := buttons&tcell.Button1 != 0
	switch {
	case pressed && !t.mouseDown:
		p.Post(visualizer.PointerDown{X: x, Y: y})
	case pressed:
		p.Post(visualizer.PointerMove{X: x, Y: y})
	case t.mouseDown:
		p.Post(visualizer.PointerUp{})
	}
	t.mouseDown = pressed
}

// keyName maps a terminal key to the binding names used by the window
// backend, so one key map serves both.
func keyName(ev *tcell.EventKey) string {
	switch ev.Key() {
	case tcell.KeyEscape:
		return "escape"
	case tcell.KeyRune:
	default:
		return ""
	}
	switch r := ev.Rune(); {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return string(r)
	case r >= 'A' && r <= 'Z':
		return string(r - 'A' + 'a')
	case r == ' ':
		return "space"
	case r == '=', r == '+':
		return "equal"
	case r == '-', r == '_':
		return "minus"
	case r == '[', r == '{':
		return "bracketleft"
	case r == ']', r == '}':
		return "bracketright"
	}
	return ""
}

func cellColor(p visualizer.ScreenPoint) tcell.Color {
	return tcell.NewRGBColor(channel(p.R), channel(p.G), channel(p.B))
}

func channel(v float32) int32 {
	return int32(math.Round(float64(min(max(v, 0), 1)) * 255))
}

// glyph picks a denser character for larger on-screen points.
func glyph(size float32) rune {
	switch {
	case size < 0.25:
		return '·'
	case size < 0.5:
		return '•'
	default:
		return '●'
	}
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+width {
			return
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
}
