package media

import (
	"context"
	"sync"
	"time"

	"sunocat/src/util"
)

// DummyElement is a media element for use in tests. It plays silence and can
// be told to finish or fail the current track.
type DummyElement struct {
	util.Emitter

	lock     sync.Mutex
	url      string
	playing  bool
	paused   bool
	elapsed  time.Duration
	Duration time.Duration
}

func NewDummyElement() *DummyElement {
	return &DummyElement{Duration: 3 * time.Minute}
}

// Play implements the media.Element interface.
func (el *DummyElement) Play(ctx context.Context, url string) error {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.url = url
	el.playing = true
	el.paused = false
	el.elapsed = 0
	return nil
}

// Pause implements the media.Element interface.
func (el *DummyElement) Pause(ctx context.Context) error {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.paused = true
	return nil
}

// Resume implements the media.Element interface.
func (el *DummyElement) Resume(ctx context.Context) error {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.paused = false
	return nil
}

// Stop implements the media.Element interface.
func (el *DummyElement) Stop(ctx context.Context) error {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.playing = false
	el.paused = false
	el.elapsed = 0
	return nil
}

// SeekBy implements the media.Element interface.
func (el *DummyElement) SeekBy(ctx context.Context, delta time.Duration) error {
	el.lock.Lock()
	defer el.lock.Unlock()
	el.elapsed += delta
	if el.elapsed < 0 {
		el.elapsed = 0
	}
	if el.elapsed > el.Duration {
		el.elapsed = el.Duration
	}
	return nil
}

// Elapsed implements the media.Element interface.
func (el *DummyElement) Elapsed(ctx context.Context) (time.Duration, error) {
	el.lock.Lock()
	defer el.lock.Unlock()
	return el.elapsed, nil
}

// CurrentURL returns the URL most recently handed to Play.
func (el *DummyElement) CurrentURL() string {
	el.lock.Lock()
	defer el.lock.Unlock()
	return el.url
}

// Playing reports whether the element is playing and not paused.
func (el *DummyElement) Playing() bool {
	el.lock.Lock()
	defer el.lock.Unlock()
	return el.playing && !el.paused
}

// FinishTrack simulates the current track reaching its end.
func (el *DummyElement) FinishTrack() {
	el.lock.Lock()
	el.playing = false
	el.lock.Unlock()
	el.Emit(EndOfTrackEvent{})
}

// FailTrack simulates a playback failure of the current track.
func (el *DummyElement) FailTrack(msg string) {
	el.lock.Lock()
	el.playing = false
	el.lock.Unlock()
	el.Emit(ErrorEvent{Error: msg})
}
