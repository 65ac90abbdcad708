package player

import "fmt"

type PlayState string

const (
	PlayStatePlaying PlayState = "playing"
	PlayStatePaused  PlayState = "paused"
	PlayStateStopped PlayState = "stopped"
)

// RepeatMode controls what happens when playback runs off either end of the
// playlist.
type RepeatMode string

const (
	// RepeatNone parks the cursor at the end and pauses.
	RepeatNone RepeatMode = "none"
	// RepeatAll wraps around to the other end.
	RepeatAll RepeatMode = "all"
	// RepeatOne restarts the current track when it ends. Manual skips still
	// move the cursor.
	RepeatOne RepeatMode = "one"
)

func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatNone, RepeatAll, RepeatOne:
		return m, nil
	}
	return "", fmt.Errorf("invalid repeat mode: %q", s)
}
