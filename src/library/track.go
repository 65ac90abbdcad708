package library

import (
	"fmt"
	"strings"
)

// MediaURLBase is the location tracks are served from. The full media URL of
// a track is derived from its identifier alone, no lookup required.
const MediaURLBase = "https://cdn.sunocat.net/audio"

// FailedArtistMarker is shown in place of the artist when metadata resolution
// has given up on a track.
const FailedArtistMarker = "(metadata unavailable)"

type ResolutionState string

const (
	ResolutionPending  ResolutionState = "pending"
	ResolutionResolved ResolutionState = "resolved"
	ResolutionFailed   ResolutionState = "failed"
)

// Track holds all information associated with a single piece of music.
//
// The identifier is the only stable property. Title, artist and artwork
// arrive later through metadata resolution and hold placeholder values until
// then.
type Track struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Artist     string          `json:"artist,omitempty"`
	Art        string          `json:"art,omitempty"`
	Liked      bool            `json:"liked,omitempty"`
	Resolution ResolutionState `json:"resolution"`
}

// NewTrack constructs a track in its unresolved state. The identifier doubles
// as the title until resolution fills in the real one.
func NewTrack(id string) Track {
	return Track{
		ID:         id,
		Title:      id,
		Resolution: ResolutionPending,
	}
}

// MediaURL derives the playable audio location for this track.
func (t Track) MediaURL() string {
	return fmt.Sprintf("%s/%s.mp3", MediaURLBase, t.ID)
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// NewTracks builds an unresolved track list from an ordered identifier list.
func NewTracks(ids []string) []Track {
	tracks := make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = NewTrack(id)
	}
	return tracks
}

// IDs projects a track list back to its ordered identifier list.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// SameSequence reports whether two track lists contain the same identifiers
// in the same order. Metadata differences are ignored.
func SameSequence(a, b []Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].ID, b[i].ID) {
			return false
		}
	}
	return true
}
