package spectrum

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ncruces/zenity"
)

// Opener opens audio sources on behalf of the visualizer. Its methods block
// (dialogs, device start-up) and are meant to be called off the render loop.
type Opener struct {
	Capture CaptureConfig
	// Prompt asks the operator before the microphone is opened.
	Prompt bool
	Log    *slog.Logger
}

// Microphone asks for permission, then opens the default input device.
func (o *Opener) Microphone() (FrequencyProvider, error) {
	if o.Prompt {
		err := zenity.Question("Allow cymatic to listen to your microphone?",
			zenity.Title("Microphone access"),
			zenity.OKLabel("Allow"),
			zenity.CancelLabel("Deny"),
		)
		switch {
		case errors.Is(err, zenity.ErrCanceled):
			return nil, ErrPermissionDenied
		case err != nil:
			// No dialog backend (headless or terminal session); the OS still
			// gates device access.
			o.logger().Warn("permission dialog unavailable", "err", err)
		}
	}
	m, err := OpenMicrophone(o.Capture)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// File opens path for playback and analysis.
func (o *Opener) File(path string) (FrequencyProvider, error) {
	src, err := OpenFile(path, o.Capture)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return src, nil
}

// ChooseFile shows a file dialog. It returns "" with a nil error when the
// operator cancels.
func (o *Opener) ChooseFile() (string, error) {
	filename, err := zenity.SelectFile(
		zenity.Title("Open Audio File"),
		zenity.FileFilters{{
			Name:     "Audio",
			Patterns: []string{"*.wav", "*.mp3", "*.flac"},
		}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", nil
		}
		return "", err
	}
	return filename, nil
}

func (o *Opener) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}
