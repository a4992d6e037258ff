package visualizer

import (
	"errors"

	"github.com/iburimskiy/cymatic/internal/interaction"
	"github.com/iburimskiy/cymatic/internal/spectrum"
)

var errNoOpener = errors.New("visualizer: no audio source opener configured")

func (s *Session) apply(c Command) {
	switch c := c.(type) {
	case KeyDown:
		s.action(s.state.KeyDown(c.Key))
	case KeyUp:
		s.state.KeyUp(c.Key)
	case PointerDown:
		s.orbit.Down(c.X, c.Y)
	case PointerMove:
		s.orbit.Move(c.X, c.Y)
	case PointerUp:
		s.orbit.Up()
	case Touch:
		s.touch(c)
	case Wheel:
		s.camera.Wheel(c.DeltaY)
	case Resize:
		s.camera.Resize(c.Width, c.Height)
		s.redraw = true
	case SourceReady:
		s.opening = false
		if err := spectrum.Close(s.provider); err != nil {
			s.log.Warn("close previous audio source", "source", s.source, "err", err)
		}
		s.provider = c.Provider
		s.source = c.Name
		s.lastErr = nil
		if p, ok := s.provider.(pauser); ok && s.state.Paused {
			p.SetPaused(true)
		}
		s.log.Info("audio source ready", "source", c.Name)
		s.redraw = true
	case SourceFailed:
		s.opening = false
		if c.Err != nil {
			s.lastErr = c.Err
			s.log.Warn("audio source unavailable", "source", c.Name, "err", c.Err)
		}
		s.redraw = true
	}
}

func (s *Session) action(a interaction.Action) {
	switch a {
	case interaction.None:
		return
	case interaction.TogglePause:
		if s.state.Paused {
			s.Stop()
		} else {
			s.Start()
		}
		if p, ok := s.provider.(pauser); ok {
			p.SetPaused(s.state.Paused)
		}
	case interaction.Recenter:
		s.camera.Recenter()
		s.orbit.Reset()
	case interaction.CountUp, interaction.CountDown:
		step := 1
		if a == interaction.CountDown {
			step = -1
		}
		if s.params.AdjustCount(step) {
			s.field.Regenerate(s.params.Count)
			s.log.Info("particle count", "count", s.params.Count)
		}
	case interaction.SizeUp, interaction.SizeDown:
		step := 1
		if a == interaction.SizeDown {
			step = -1
		}
		if s.params.AdjustSize(step) {
			s.field.SetSize(float32(s.params.Size))
		}
	case interaction.StartCapture:
		s.requestCapture()
	case interaction.OpenFile:
		s.openFile("")
	case interaction.Quit:
		s.quit = true
	}
	s.log.Debug("key action", "action", a)
	s.redraw = true
}

// touch routes one finger to the orbit and two fingers to pinch zoom.
func (s *Session) touch(c Touch) {
	pts := c.Points
	switch c.Phase {
	case TouchStart:
		switch len(pts) {
		case 1:
			s.orbit.Down(pts[0].X, pts[0].Y)
		case 2:
			s.orbit.Up()
			s.camera.PinchStart(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
		}
	case TouchMove:
		switch len(pts) {
		case 1:
			s.orbit.Move(pts[0].X, pts[0].Y)
		case 2:
			s.camera.PinchMove(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
		}
	case TouchEnd:
		s.camera.PinchEnd()
		if len(pts) == 1 {
			// Continue dragging with the finger that is left.
			s.orbit.Down(pts[0].X, pts[0].Y)
		} else {
			s.orbit.Up()
		}
	}
}

// requestCapture asks for the microphone without blocking the loop. The
// outcome arrives later as SourceReady or SourceFailed. There is no retry:
// the operator presses the capture key again.
func (s *Session) requestCapture() {
	if s.opening {
		return
	}
	if s.opener == nil {
		s.lastErr = errNoOpener
		return
	}
	s.opening = true
	opener := s.opener
	go func() {
		p, err := opener.Microphone()
		if err != nil {
			s.Post(SourceFailed{Name: "microphone", Err: err})
			return
		}
		s.deliver(SourceReady{Provider: p, Name: "microphone"})
	}()
}

// openFile plays path, or asks the operator for one when path is empty.
func (s *Session) openFile(path string) {
	if s.opening {
		return
	}
	if s.opener == nil {
		s.lastErr = errNoOpener
		return
	}
	s.opening = true
	opener := s.opener
	go func() {
		if path == "" {
			chosen, err := opener.ChooseFile()
			if err != nil || chosen == "" {
				s.Post(SourceFailed{Name: "file", Err: err})
				return
			}
			path = chosen
		}
		p, err := opener.File(path)
		if err != nil {
			s.Post(SourceFailed{Name: path, Err: err})
			return
		}
		name := path
		if f, ok := p.(interface{ Name() string }); ok {
			name = f.Name()
		}
		s.deliver(SourceReady{Provider: p, Name: name})
	}()
}

// deliver hands an opened source to the loop, or closes it when the session
// is already closed.
func (s *Session) deliver(c SourceReady) {
	if s.queue.post(c) {
		return
	}
	if err := spectrum.Close(c.Provider); err != nil {
		s.log.Warn("close audio source after session end", "source", c.Name, "err", err)
	}
}
