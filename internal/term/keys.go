package term

import (
	"sync"
	"time"

	"github.com/iburimskiy/cymatic/internal/visualizer"
)

// Terminals report presses only. After the first press a key stays held
// longer than the typical auto-repeat delay; once repeats arrive the hold
// only has to bridge the gap between two repeats.
const (
	firstHold  = 600 * time.Millisecond
	repeatHold = 120 * time.Millisecond
)

type poster interface {
	Post(c visualizer.Command)
}

// releaser synthesizes key releases for a terminal: a key counts as held
// until no press has arrived for the hold time.
type releaser struct {
	post          poster
	first, repeat time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newReleaser(p poster, first, repeat time.Duration) *releaser {
	return &releaser{post: p, first: first, repeat: repeat, timers: map[string]*time.Timer{}}
}

func (r *releaser) press(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tm, ok := r.timers[key]; ok && tm.Stop() {
		tm.Reset(r.repeat)
		return
	}
	r.post.Post(visualizer.KeyDown{Key: key})
	var tm *time.Timer
	tm = time.AfterFunc(r.first, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// A press that raced this release already owns the key.
		if r.timers[key] != tm {
			return
		}
		delete(r.timers, key)
		r.post.Post(visualizer.KeyUp{Key: key})
	})
	r.timers[key] = tm
}

func (r *releaser) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, tm := range r.timers {
		tm.Stop()
		delete(r.timers, key)
	}
}
