// Package player implements the playback state machine: it owns the ordered
// track list, the cursor and the shuffle/repeat mode, and applies all
// transitions.
package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"sunocat/src/library"
	"sunocat/src/media"
	"sunocat/src/util"
)

// Status is a point in time snapshot of the playback state.
type Status struct {
	State      PlayState     `json:"state"`
	Index      int           `json:"index"`
	TrackCount int           `json:"trackCount"`
	Shuffle    bool          `json:"shuffle"`
	Repeat     RepeatMode    `json:"repeat"`
	Elapsed    time.Duration `json:"-"`
}

// Player is the sole mutator of the playlist, cursor and mode. External
// components read snapshots and submit transitions; they never reach into
// the state directly.
//
// Transitions are applied atomically with respect to each other. Metadata
// resolution is fire and forget: starting a load never blocks playback
// control, and results of a load that has since been replaced are discarded.
type Player struct {
	util.Emitter

	media    media.Element
	resolver *library.Resolver

	lock    sync.Mutex
	tracks  []library.Track // Active ordering; the cursor indexes into this.
	origin  []library.Track // Pre-shuffle ordering, nil while shuffle is off.
	index   int
	state   PlayState
	repeat  RepeatMode
	shuffle bool

	// The identifier loaded into the media element, so a resume after the
	// cursor moved does not continue the wrong track.
	mediaID string
	// Set when playback ran off the end of the list. The next play restarts
	// the current track instead of resuming.
	drained bool

	loadCancel context.CancelFunc
}

func New(m media.Element, resolver *library.Resolver) *Player {
	return &Player{
		media:    m,
		resolver: resolver,
		state:    PlayStateStopped,
		repeat:   RepeatNone,
	}
}

// Run relays media element events into state transitions. It blocks until
// ctx is canceled.
func (p *Player) Run(ctx context.Context) {
	events := p.media.Events().Listen()
	defer p.media.Events().Unlisten(events)
	for {
		select {
		case event := <-events:
			switch t := event.(type) {
			case media.EndOfTrackEvent:
				if err := p.TrackEnded(ctx); err != nil {
					log.Errorf("Transition after track end: %v", err)
				}
			case media.ErrorEvent:
				log.Warnf("Media playback failed, skipping: %v", t.Error)
				if err := p.TrackFailed(ctx); err != nil {
					log.Errorf("Transition after track failure: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Load replaces the entire playlist and resets the cursor to 0.
//
// Metadata resolution for any previous playlist is canceled; its results can
// never surface in the new one. Resolution for the new list starts
// immediately and runs in the background.
func (p *Player) Load(ctx context.Context, ids []string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.loadCancel != nil {
		p.loadCancel()
		p.loadCancel = nil
	}

	p.tracks = library.NewTracks(ids)
	p.origin = nil
	p.index = 0
	p.drained = false
	p.mediaID = ""
	if p.shuffle && len(p.tracks) > 0 {
		p.origin = snapshot(p.tracks)
		shuffleTracks(p.tracks)
	}

	if err := p.media.Stop(ctx); err != nil {
		log.Warnf("Could not stop media element on load: %v", err)
	}
	p.setStateLocked(PlayStateStopped)
	p.Emit(PlaylistEvent{})
	p.Emit(CursorEvent{Index: p.index})

	if p.resolver != nil && len(ids) > 0 {
		// Resolution outlives the request that triggered the load. It ends
		// when the next load supersedes it.
		loadCtx, cancel := context.WithCancel(context.Background())
		p.loadCancel = cancel
		p.resolver.Resolve(loadCtx, ids, func(id string, meta library.Meta, err error) {
			p.lock.Lock()
			defer p.lock.Unlock()
			if loadCtx.Err() != nil {
				return
			}
			p.applyMetaLocked(id, meta, err)
		})
	}
	return nil
}

// applyMetaLocked merges one resolution result into the live list, matching
// by identifier so that results can never land on the wrong track after a
// reorder.
func (p *Player) applyMetaLocked(id string, meta library.Meta, resErr error) {
	apply := func(tracks []library.Track) bool {
		matched := false
		for i := range tracks {
			if tracks[i].ID != id {
				continue
			}
			matched = true
			if resErr != nil {
				tracks[i].Resolution = library.ResolutionFailed
				tracks[i].Artist = library.FailedArtistMarker
				continue
			}
			tracks[i].Resolution = library.ResolutionResolved
			if meta.Title != "" {
				tracks[i].Title = meta.Title
			}
			tracks[i].Artist = meta.Artist
			tracks[i].Art = meta.Art
		}
		return matched
	}

	matched := apply(p.tracks)
	if p.origin != nil {
		apply(p.origin)
	}
	if matched {
		p.Emit(TrackResolvedEvent{ID: id})
	}
}

// Play starts or resumes playback. A no-op on an empty playlist.
func (p *Player) Play(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(p.tracks) == 0 || p.state == PlayStatePlaying {
		return nil
	}
	current := p.tracks[p.index]
	if p.state == PlayStatePaused && !p.drained && p.mediaID == current.ID {
		if err := p.media.Resume(ctx); err != nil {
			return err
		}
		p.setStateLocked(PlayStatePlaying)
		return nil
	}
	return p.startCurrentLocked(ctx)
}

// Pause suspends playback.
func (p *Player) Pause(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != PlayStatePlaying {
		return nil
	}
	if err := p.media.Pause(ctx); err != nil {
		return err
	}
	p.setStateLocked(PlayStatePaused)
	return nil
}

// Next advances the cursor. At the end of the list it wraps when the repeat
// mode is "all" and otherwise stays put and pauses; running off the end is
// not an error.
func (p *Player) Next(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advanceLocked(ctx, 1)
}

// Previous moves the cursor backward, wrapping only when the repeat mode is
// "all".
func (p *Player) Previous(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advanceLocked(ctx, -1)
}

// TrackEnded handles the end-of-track signal from the media layer.
func (p *Player) TrackEnded(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(p.tracks) == 0 {
		return nil
	}
	if p.repeat == RepeatOne {
		return p.startCurrentLocked(ctx)
	}
	return p.advanceLocked(ctx, 1)
}

// TrackFailed handles a media playback failure for the current track. The
// track is considered unusable and is skipped, exactly like Next.
func (p *Player) TrackFailed(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advanceLocked(ctx, 1)
}

func (p *Player) advanceLocked(ctx context.Context, dir int) error {
	if len(p.tracks) == 0 {
		return nil
	}
	next := p.index + dir
	if next < 0 || next >= len(p.tracks) {
		if p.repeat != RepeatAll {
			// End of list. The cursor stays where it is.
			p.drained = true
			if p.state == PlayStatePlaying {
				if err := p.media.Stop(ctx); err != nil {
					log.Warnf("Could not stop media element: %v", err)
				}
			}
			p.setStateLocked(PlayStatePaused)
			return nil
		}
		next = (next + len(p.tracks)) % len(p.tracks)
	}

	p.index = next
	p.drained = false
	p.Emit(CursorEvent{Index: p.index})
	if p.state == PlayStatePlaying {
		return p.startCurrentLocked(ctx)
	}
	return nil
}

// ToggleShuffle switches between the natural and a randomized ordering.
//
// Enabling snapshots the current ordering and derives a uniform random
// permutation. Disabling restores the snapshot verbatim. The cursor follows
// the active track's identifier into the new ordering, so playback continues
// undisturbed.
func (p *Player) ToggleShuffle(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	var currentID string
	if len(p.tracks) > 0 {
		currentID = p.tracks[p.index].ID
	}

	if !p.shuffle {
		p.origin = snapshot(p.tracks)
		shuffleTracks(p.tracks)
		p.shuffle = true
	} else {
		p.tracks = p.origin
		p.origin = nil
		p.shuffle = false
	}
	p.index = 0
	for i := range p.tracks {
		if p.tracks[i].ID == currentID {
			p.index = i
			break
		}
	}
	p.Emit(PlaylistEvent{})
	p.Emit(CursorEvent{Index: p.index})
	p.Emit(ModeEvent{Shuffle: p.shuffle, Repeat: p.repeat})
	return nil
}

// SetRepeatMode changes the repeat behavior without touching the cursor.
func (p *Player) SetRepeatMode(mode RepeatMode) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.repeat == mode {
		return
	}
	p.repeat = mode
	p.Emit(ModeEvent{Shuffle: p.shuffle, Repeat: p.repeat})
}

// Move reorders the playlist by taking the track at fromPos out and
// reinserting it at toPos. The cursor follows the currently active track's
// identifier, wherever it ends up.
func (p *Player) Move(ctx context.Context, fromPos, toPos int) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if fromPos < 0 || fromPos >= len(p.tracks) || toPos < 0 || toPos >= len(p.tracks) {
		return &OutOfRangeError{From: fromPos, To: toPos, Len: len(p.tracks)}
	}
	if fromPos == toPos {
		return nil
	}

	track := p.tracks[fromPos]
	p.tracks = append(p.tracks[:fromPos], p.tracks[fromPos+1:]...)
	rest := snapshot(p.tracks[toPos:])
	p.tracks = append(append(p.tracks[:toPos], track), rest...)

	switch {
	case fromPos == p.index:
		p.index = toPos
	case fromPos < p.index && toPos >= p.index:
		p.index--
	case fromPos > p.index && toPos <= p.index:
		p.index++
	}

	p.Emit(PlaylistEvent{})
	p.Emit(CursorEvent{Index: p.index})
	return nil
}

// SeekRelative shifts the playback position of the current track. The media
// element clamps the result to the track bounds. The cursor is unaffected.
func (p *Player) SeekRelative(ctx context.Context, delta time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	return p.media.SeekBy(ctx, delta)
}

// Status reports a snapshot of the playback state.
func (p *Player) Status(ctx context.Context) Status {
	p.lock.Lock()
	status := Status{
		State:      p.state,
		Index:      p.index,
		TrackCount: len(p.tracks),
		Shuffle:    p.shuffle,
		Repeat:     p.repeat,
	}
	p.lock.Unlock()

	if status.State != PlayStateStopped {
		if elapsed, err := p.media.Elapsed(ctx); err == nil {
			status.Elapsed = elapsed
		}
	}
	return status
}

// Tracks returns a copy of the active ordering.
func (p *Player) Tracks() []library.Track {
	p.lock.Lock()
	defer p.lock.Unlock()
	return snapshot(p.tracks)
}

// IDs returns the ordered identifier list of the active ordering.
func (p *Player) IDs() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return library.IDs(p.tracks)
}

// CurrentTrack returns the track under the cursor.
func (p *Player) CurrentTrack() (library.Track, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.tracks) == 0 {
		return library.Track{}, false
	}
	return p.tracks[p.index], true
}

// MarkLiked updates the liked flag on all tracks with the specified
// identifier. Membership in the liked set is independent of the playlist;
// this merely refreshes the view of it.
func (p *Player) MarkLiked(id string, liked bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	changed := false
	for _, tracks := range [][]library.Track{p.tracks, p.origin} {
		for i := range tracks {
			if tracks[i].ID == id && tracks[i].Liked != liked {
				tracks[i].Liked = liked
				changed = true
			}
		}
	}
	if changed {
		p.Emit(PlaylistEvent{})
	}
}

func (p *Player) startCurrentLocked(ctx context.Context) error {
	current := p.tracks[p.index]
	if err := p.media.Play(ctx, current.MediaURL()); err != nil {
		return err
	}
	p.mediaID = current.ID
	p.drained = false
	p.setStateLocked(PlayStatePlaying)
	return nil
}

func (p *Player) setStateLocked(state PlayState) {
	if p.state == state {
		return
	}
	p.state = state
	p.Emit(PlayStateEvent{State: state})
}

func snapshot(tracks []library.Track) []library.Track {
	c := make([]library.Track, len(tracks))
	copy(c, tracks)
	return c
}

// shuffleTracks randomizes the ordering in place with an unbiased
// Fisher-Yates permutation.
func shuffleTracks(tracks []library.Track) {
	rand.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
}
