// Package media abstracts the native audio element the player drives.
// Decoding and transport are entirely the element's business.
package media

import (
	"context"
	"time"

	"sunocat/src/util"
)

// EndOfTrackEvent is emitted when the current track played to completion.
type EndOfTrackEvent struct{}

// ErrorEvent is emitted when the element failed to play the current track.
// The player treats this as an implicit skip request.
type ErrorEvent struct {
	Error string
}

// An Element is a single-track audio sink.
type Element interface {
	util.Eventer

	// Play starts playback of the specified media URL from the beginning,
	// replacing whatever was playing before.
	Play(ctx context.Context, url string) error

	// Pause suspends playback, keeping the position.
	Pause(ctx context.Context) error

	// Resume continues paused playback.
	Resume(ctx context.Context) error

	// Stop ends playback and discards the position.
	Stop(ctx context.Context) error

	// SeekBy moves the playback position by delta, which may be negative.
	// The element clamps the result to [0, duration].
	SeekBy(ctx context.Context, delta time.Duration) error

	// Elapsed reports the current playback position.
	Elapsed(ctx context.Context) (time.Duration, error)
}
