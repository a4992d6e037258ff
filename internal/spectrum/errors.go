package spectrum

import "errors"

var (
	ErrNoInputDevice     = errors.New("spectrum: no audio input device")
	ErrPermissionDenied  = errors.New("spectrum: microphone access denied")
	ErrUnsupportedFormat = errors.New("spectrum: unsupported file type")
)
