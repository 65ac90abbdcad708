package player

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"sunocat/src/library"
	"sunocat/src/media"
	"sunocat/src/util"
)

func testIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%08d-0000-0000-0000-%012d", i, i)
	}
	return ids
}

func newTestPlayer() (*Player, *media.DummyElement) {
	el := media.NewDummyElement()
	return New(el, nil), el
}

func TestLoadResetsCursorAndState(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	ids := testIDs(2)

	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}

	status := pl.Status(ctx)
	if status.Index != 0 {
		t.Fatalf("Unexpected cursor: %v", status.Index)
	}
	if status.State != PlayStateStopped {
		t.Fatalf("Unexpected state: %v", status.State)
	}
	tracks := pl.Tracks()
	if !reflect.DeepEqual(library.IDs(tracks), ids) {
		t.Fatalf("Unexpected track order: %v", library.IDs(tracks))
	}
	for _, track := range tracks {
		if track.Resolution != library.ResolutionPending {
			t.Fatalf("Track %v should be pending, is %v", track.ID, track.Resolution)
		}
	}
}

func TestPlayOnEmptyPlaylistIsNoop(t *testing.T) {
	ctx := context.Background()
	pl, el := newTestPlayer()

	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.State != PlayStateStopped {
		t.Fatalf("Unexpected state: %v", status.State)
	}
	if el.CurrentURL() != "" {
		t.Fatal("Media element should not have been touched")
	}
}

func TestPlayPauseResume(t *testing.T) {
	ctx := context.Background()
	pl, el := newTestPlayer()
	ids := testIDs(2)
	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}

	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.State != PlayStatePlaying {
		t.Fatalf("Unexpected state: %v", status.State)
	}
	if want := library.NewTrack(ids[0]).MediaURL(); el.CurrentURL() != want {
		t.Fatalf("Unexpected media URL: %v != %v", el.CurrentURL(), want)
	}

	if err := pl.SeekRelative(ctx, 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := pl.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.State != PlayStatePaused {
		t.Fatalf("Unexpected state: %v", status.State)
	}

	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}
	// A resume continues where the pause left off.
	if status := pl.Status(ctx); status.Elapsed != 30*time.Second {
		t.Fatalf("Resume should not restart the track, elapsed=%v", status.Elapsed)
	}
}

func TestNextAtEndRepeatNone(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}

	if err := pl.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 1 || status.State != PlayStatePlaying {
		t.Fatalf("Unexpected status: %+v", status)
	}

	if err := pl.Next(ctx); err != nil {
		t.Fatal(err)
	}
	status := pl.Status(ctx)
	if status.Index != 1 {
		t.Fatalf("Cursor should stay at the last index, is %v", status.Index)
	}
	if status.State != PlayStatePaused {
		t.Fatalf("Unexpected state at end of list: %v", status.State)
	}
}

func TestNextAtEndRepeatAllWraps(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(3)); err != nil {
		t.Fatal(err)
	}
	pl.SetRepeatMode(RepeatAll)
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := pl.Next(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if err := pl.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 0 || status.State != PlayStatePlaying {
		t.Fatalf("Unexpected status after wrap: %+v", status)
	}
}

func TestPreviousWrapsOnlyWithRepeatAll(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(3)); err != nil {
		t.Fatal(err)
	}

	if err := pl.Previous(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 0 {
		t.Fatalf("Cursor should stay at 0, is %v", status.Index)
	}

	pl.SetRepeatMode(RepeatAll)
	if err := pl.Previous(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 2 {
		t.Fatalf("Cursor should wrap to the end, is %v", status.Index)
	}
}

func TestTrackEndedAdvances(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}

	if err := pl.TrackEnded(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 1 || status.State != PlayStatePlaying {
		t.Fatalf("Unexpected status: %+v", status)
	}

	if err := pl.TrackEnded(ctx); err != nil {
		t.Fatal(err)
	}
	if status := pl.Status(ctx); status.Index != 1 || status.State != PlayStatePaused {
		t.Fatalf("Unexpected status at end of list: %+v", status)
	}
}

func TestTrackEndedRepeatOneRestarts(t *testing.T) {
	ctx := context.Background()
	pl, el := newTestPlayer()
	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	pl.SetRepeatMode(RepeatOne)
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if err := pl.SeekRelative(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := pl.TrackEnded(ctx); err != nil {
		t.Fatal(err)
	}
	status := pl.Status(ctx)
	if status.Index != 0 || status.State != PlayStatePlaying {
		t.Fatalf("Unexpected status: %+v", status)
	}
	if status.Elapsed != 0 {
		t.Fatalf("Track should restart from the beginning, elapsed=%v", status.Elapsed)
	}
	if !el.Playing() {
		t.Fatal("Media element should be playing")
	}
}

func TestMediaFailureSkipsTrack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pl, el := newTestPlayer()
	go pl.Run(ctx)

	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}

	el.FailTrack("synthetic decode error")

	deadline := time.Now().Add(time.Second)
	for {
		if status := pl.Status(ctx); status.Index == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Playback failure did not skip to the next track")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEndOfTrackEventAdvances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pl, el := newTestPlayer()
	go pl.Run(ctx)

	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Play(ctx); err != nil {
		t.Fatal(err)
	}

	el.FinishTrack()

	deadline := time.Now().Add(time.Second)
	for {
		if status := pl.Status(ctx); status.Index == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("End of track did not advance the cursor")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShuffleReversibility(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	ids := testIDs(16)
	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}

	if err := pl.ToggleShuffle(ctx); err != nil {
		t.Fatal(err)
	}
	shuffled := library.IDs(pl.Tracks())
	sortedShuffled := append([]string{}, shuffled...)
	sort.Strings(sortedShuffled)
	sortedOrig := append([]string{}, ids...)
	sort.Strings(sortedOrig)
	if !reflect.DeepEqual(sortedShuffled, sortedOrig) {
		t.Fatalf("Shuffle changed the track set: %v", shuffled)
	}
	if status := pl.Status(ctx); !status.Shuffle {
		t.Fatalf("Unexpected status after shuffle: %+v", status)
	}
	if current, _ := pl.CurrentTrack(); current.ID != ids[0] {
		t.Fatalf("Cursor did not follow the active track into the shuffle: %v", current.ID)
	}

	if err := pl.ToggleShuffle(ctx); err != nil {
		t.Fatal(err)
	}
	if got := library.IDs(pl.Tracks()); !reflect.DeepEqual(got, ids) {
		t.Fatalf("Disabling shuffle did not restore the original order: %v", got)
	}
	if status := pl.Status(ctx); status.Index != 0 || status.Shuffle {
		t.Fatalf("Unexpected status after unshuffle: %+v", status)
	}
}

func TestMoveCursorFollowsCurrentTrack(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	ids := testIDs(3)
	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}
	current, _ := pl.CurrentTrack()

	if err := pl.Move(ctx, 0, 2); err != nil {
		t.Fatal(err)
	}
	status := pl.Status(ctx)
	if status.Index != 2 {
		t.Fatalf("Cursor did not follow the moved track: %v", status.Index)
	}
	after, _ := pl.CurrentTrack()
	if after.ID != current.ID {
		t.Fatalf("Current track changed: %v != %v", after.ID, current.ID)
	}
	if got := library.IDs(pl.Tracks()); !reflect.DeepEqual(got, []string{ids[1], ids[2], ids[0]}) {
		t.Fatalf("Unexpected order after move: %v", got)
	}
}

func TestMoveAroundCursor(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	ids := testIDs(4)
	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}
	if err := pl.Next(ctx); err != nil { // Cursor at 1.
		t.Fatal(err)
	}
	current, _ := pl.CurrentTrack()

	if err := pl.Move(ctx, 3, 0); err != nil {
		t.Fatal(err)
	}
	after, _ := pl.CurrentTrack()
	if after.ID != current.ID {
		t.Fatalf("Current track changed: %v != %v", after.ID, current.ID)
	}
	if status := pl.Status(ctx); status.Index != 2 {
		t.Fatalf("Unexpected cursor: %v", status.Index)
	}
}

func TestMoveOutOfRange(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	if err := pl.Move(ctx, 0, 5); err == nil {
		t.Fatal("Expected an out of range error")
	}
}

func TestPlayStateEventEmission(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(1)); err != nil {
		t.Fatal(err)
	}
	util.TestEventEmission(t, pl, PlayStateEvent{State: PlayStatePlaying}, func() {
		if err := pl.Play(ctx); err != nil {
			t.Fatal(err)
		}
	})
}

func TestCursorEventEmission(t *testing.T) {
	ctx := context.Background()
	pl, _ := newTestPlayer()
	if err := pl.Load(ctx, testIDs(2)); err != nil {
		t.Fatal(err)
	}
	util.TestEventEmission(t, pl, CursorEvent{Index: 1}, func() {
		if err := pl.Next(ctx); err != nil {
			t.Fatal(err)
		}
	})
}

// gatedLookup blocks the first lookup until released, subsequent lookups
// return immediately.
type gatedLookup struct {
	gate    chan struct{}
	started chan struct{}

	lock  sync.Mutex
	calls int
}

func (g *gatedLookup) Lookup(ctx context.Context, id string) (library.Meta, error) {
	g.lock.Lock()
	g.calls++
	first := g.calls == 1
	g.lock.Unlock()

	if first {
		close(g.started)
		select {
		case <-g.gate:
		case <-ctx.Done():
		}
		return library.Meta{Title: "stale", Artist: "stale"}, nil
	}
	return library.Meta{Title: "fresh", Artist: "fresh"}, nil
}

func TestSupersededLoadNeverMutatesNewPlaylist(t *testing.T) {
	ctx := context.Background()
	lookup := &gatedLookup{gate: make(chan struct{}), started: make(chan struct{})}
	resolver := library.NewResolver(lookup)
	resolver.BaseDelay = time.Millisecond

	el := media.NewDummyElement()
	pl := New(el, resolver)

	ids := testIDs(1)
	if err := pl.Load(ctx, ids); err != nil { // First load, lookup blocks.
		t.Fatal(err)
	}
	<-lookup.started
	if err := pl.Load(ctx, ids); err != nil { // Same identifier, fresh load.
		t.Fatal(err)
	}

	// Let the first load's lookup complete after it was superseded.
	close(lookup.gate)

	deadline := time.Now().Add(time.Second)
	for {
		tracks := pl.Tracks()
		if tracks[0].Resolution == library.ResolutionResolved {
			if tracks[0].Title != "fresh" {
				t.Fatalf("Stale metadata leaked into the new playlist: %q", tracks[0].Title)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Resolution did not complete")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Give the stale result every chance to land before the final check.
	time.Sleep(50 * time.Millisecond)
	if title := pl.Tracks()[0].Title; title != "fresh" {
		t.Fatalf("Stale metadata leaked into the new playlist: %q", title)
	}
}

func TestResolutionFailureMarksTrack(t *testing.T) {
	ctx := context.Background()
	lookup := &failingLookup{}
	resolver := library.NewResolver(lookup)
	resolver.BaseDelay = time.Millisecond

	el := media.NewDummyElement()
	pl := New(el, resolver)
	ids := testIDs(1)
	if err := pl.Load(ctx, ids); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		tracks := pl.Tracks()
		if tracks[0].Resolution == library.ResolutionFailed {
			if tracks[0].Artist != library.FailedArtistMarker {
				t.Fatalf("Unexpected artist marker: %q", tracks[0].Artist)
			}
			if tracks[0].Title != ids[0] {
				t.Fatalf("Title should keep its placeholder: %q", tracks[0].Title)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Resolution failure was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type failingLookup struct{}

func (failingLookup) Lookup(ctx context.Context, id string) (library.Meta, error) {
	return library.Meta{}, fmt.Errorf("lookup %q: synthetic failure", id)
}
