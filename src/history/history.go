// Package history persists playback state across sessions: the current
// playlist, a bounded history of past playlists, favorites and the liked
// track set.
package history

import (
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"sunocat/src/library"
	"sunocat/src/util"
)

// maxRecords caps the history. Favorites live in their own set and are not
// subject to this cap.
const maxRecords = 10

// A TrackSnapshot is the part of a track worth remembering once a playlist
// is no longer live.
type TrackSnapshot struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

// A Record is one remembered playlist.
type Record struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Tracks     []TrackSnapshot `json:"tracks"`
	FirstTitle string          `json:"firstTitle"`
}

// TrackCount returns the number of tracks in the remembered playlist.
func (r Record) TrackCount() int {
	return len(r.Tracks)
}

// sameSequence reports order-sensitive identifier equality, the identity
// under which history records are deduplicated.
func (r Record) sameSequence(tracks []TrackSnapshot) bool {
	if len(r.Tracks) != len(tracks) {
		return false
	}
	for i := range tracks {
		if r.Tracks[i].ID != tracks[i].ID {
			return false
		}
	}
	return true
}

type storageFormat struct {
	Current   []TrackSnapshot   `json:"current"`
	Records   []Record          `json:"history"`
	Favorites map[string]Record `json:"favorites"`
	Liked     map[string]bool   `json:"liked"`
}

// A Store handles persistence of playlists and the liked set.
//
// All operations are total with respect to playback: a failing write leaves
// the in-memory state authoritative and surfaces only as an error for the
// caller to log.
type Store struct {
	util.Emitter

	// Guards all access to the storage value. The maps inside it are shared
	// between the stored copy and readers, so reads need the lock too.
	lock    sync.Mutex
	storage *util.PersistentStorage[storageFormat]
}

// UpdateEvent is emitted whenever the stored history or liked set changed.
type UpdateEvent struct{}

// NewStore opens the history store inside the specified directory.
func NewStore(directory string) (*Store, error) {
	storage, err := util.NewPersistentStorage(path.Join(directory, "history.json"), storageFormat{
		Favorites: map[string]Record{},
		Liked:     map[string]bool{},
	})
	if err != nil {
		return nil, err
	}
	return &Store{storage: storage}, nil
}

// SaveCurrent replaces the single last-session record. It never accumulates
// history.
func (st *Store) SaveCurrent(tracks []library.Track) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	data := st.storage.Value()
	data.Current = snapshots(tracks)
	return st.storage.SetValue(data)
}

// LastSession returns the ordered identifier list of the last session, if
// any.
func (st *Store) LastSession() ([]string, bool) {
	st.lock.Lock()
	defer st.lock.Unlock()

	current := st.storage.Value().Current
	if len(current) == 0 {
		return nil, false
	}
	ids := make([]string, len(current))
	for i, t := range current {
		ids[i] = t.ID
	}
	return ids, true
}

// SaveToHistory creates a new history record at the front.
//
// Any existing record with the exact same identifier sequence is removed
// first, so a playlist loaded again refreshes its position instead of
// duplicating. The history is then truncated to its cap.
func (st *Store) SaveToHistory(tracks []library.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	st.lock.Lock()
	defer st.lock.Unlock()

	snaps := snapshots(tracks)
	record := Record{
		ID:         newRecordID(),
		Timestamp:  time.Now(),
		Tracks:     snaps,
		FirstTitle: snaps[0].Title,
	}

	data := st.storage.Value()
	kept := make([]Record, 0, len(data.Records)+1)
	kept = append(kept, record)
	for _, r := range data.Records {
		if !r.sameSequence(snaps) {
			kept = append(kept, r)
		}
	}
	if len(kept) > maxRecords {
		kept = kept[:maxRecords]
	}
	data.Records = kept

	if err := st.storage.SetValue(data); err != nil {
		return err
	}
	st.Emit(UpdateEvent{})
	return nil
}

// Records returns the history, most recent first.
func (st *Store) Records() []Record {
	st.lock.Lock()
	defer st.lock.Unlock()
	return st.storage.Value().Records
}

// Delete removes a record from the history and, if present, from the
// favorites. Deleting an unknown record is a no-op.
func (st *Store) Delete(recordID string) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	data := st.storage.Value()
	kept := data.Records[:0:0]
	for _, r := range data.Records {
		if r.ID != recordID {
			kept = append(kept, r)
		}
	}
	data.Records = kept
	delete(data.Favorites, recordID)

	if err := st.storage.SetValue(data); err != nil {
		return err
	}
	st.Emit(UpdateEvent{})
	return nil
}

// Favorite copies a history record into the unbounded favorites set.
func (st *Store) Favorite(recordID string) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	data := st.storage.Value()
	for _, r := range data.Records {
		if r.ID == recordID {
			data.Favorites[r.ID] = r
			if err := st.storage.SetValue(data); err != nil {
				return err
			}
			st.Emit(UpdateEvent{})
			return nil
		}
	}
	return fmt.Errorf("no history record with id %q", recordID)
}

// Unfavorite removes a record from the favorites set. The history is not
// affected.
func (st *Store) Unfavorite(recordID string) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	data := st.storage.Value()
	if _, ok := data.Favorites[recordID]; !ok {
		return nil
	}
	delete(data.Favorites, recordID)
	if err := st.storage.SetValue(data); err != nil {
		return err
	}
	st.Emit(UpdateEvent{})
	return nil
}

// Favorites returns the favorite records, most recent first.
func (st *Store) Favorites() []Record {
	st.lock.Lock()
	defer st.lock.Unlock()

	favorites := st.storage.Value().Favorites
	records := make([]Record, 0, len(favorites))
	for _, r := range favorites {
		records = append(records, r)
	}
	// Record ids are time ordered, newest first.
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID > records[j].ID
	})
	return records
}

// SetLiked adds or removes a track identifier from the liked set.
func (st *Store) SetLiked(trackID string, liked bool) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	data := st.storage.Value()
	if data.Liked[trackID] == liked {
		return nil
	}
	if liked {
		data.Liked[trackID] = true
	} else {
		delete(data.Liked, trackID)
	}
	if err := st.storage.SetValue(data); err != nil {
		return err
	}
	st.Emit(UpdateEvent{})
	return nil
}

// Liked reports whether a track identifier is in the liked set.
func (st *Store) Liked(trackID string) bool {
	st.lock.Lock()
	defer st.lock.Unlock()
	return st.storage.Value().Liked[trackID]
}

// ApplyLiked sets the liked flag on all tracks present in the liked set.
func (st *Store) ApplyLiked(tracks []library.Track) {
	st.lock.Lock()
	defer st.lock.Unlock()

	liked := st.storage.Value().Liked
	for i := range tracks {
		tracks[i].Liked = liked[tracks[i].ID]
	}
}

func snapshots(tracks []library.Track) []TrackSnapshot {
	snaps := make([]TrackSnapshot, len(tracks))
	for i, t := range tracks {
		snaps[i] = TrackSnapshot{ID: t.ID, Title: t.Title, Artist: t.Artist}
	}
	return snaps
}

// newRecordID returns a unique id that sorts lexicographically by creation
// time.
func newRecordID() string {
	return fmt.Sprintf("%020d", time.Now().UnixNano())
}
