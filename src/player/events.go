package player

// PlaylistEvent is emitted when the contents or order of the playlist
// changed.
type PlaylistEvent struct{}

// CursorEvent is emitted when the active track index changed.
type CursorEvent struct {
	Index int
}

// PlayStateEvent is emitted when playback started, paused or stopped.
type PlayStateEvent struct {
	State PlayState
}

// ModeEvent is emitted when the shuffle or repeat setting changed.
type ModeEvent struct {
	Shuffle bool
	Repeat  RepeatMode
}

// TrackResolvedEvent is emitted when metadata resolution concluded for a
// track, successfully or not.
type TrackResolvedEvent struct {
	ID string
}
