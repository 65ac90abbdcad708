// Package jukebox ties the playback state machine to the supporting
// services: extraction, tokens, history, the stock list and the remote
// share service.
package jukebox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"sunocat/src/collector"
	"sunocat/src/extract"
	"sunocat/src/history"
	"sunocat/src/library"
	"sunocat/src/player"
	"sunocat/src/token"
	"sunocat/src/util"
)

// Shares is the slice of the share service the jukebox needs.
type Shares interface {
	Create(ctx context.Context, ids []string) (string, error)
	Resolve(ctx context.Context, playlistID string) ([]string, error)
}

// Jukebox coordinates the player with persistence and the remote services.
// Everything stateful hangs off it, the HTTP layer is a thin shell around
// its methods.
type Jukebox struct {
	util.Emitter

	player     *player.Player
	history    *history.Store
	stock      *collector.StockList
	shortLinks extract.ShortLinkResolver
	shares     Shares
	urlRoot    string
}

func New(pl *player.Player, hist *history.Store, stock *collector.StockList, shortLinks extract.ShortLinkResolver, shares Shares, urlRoot string) *Jukebox {
	return &Jukebox{
		player:     pl,
		history:    hist,
		stock:      stock,
		shortLinks: shortLinks,
		shares:     shares,
		urlRoot:    urlRoot,
	}
}

// Run processes media events and relays all component events through the
// jukebox's own emitter. It blocks until ctx is canceled.
func (jb *Jukebox) Run(ctx context.Context) {
	go jb.player.Run(ctx)

	sources := []*util.Emitter{jb.player.Events(), jb.history.Events()}
	if jb.stock != nil {
		sources = append(sources, jb.stock.Events())
		go func() {
			if err := jb.stock.Watch(ctx); err != nil {
				log.Errorf("Stock list watcher: %v", err)
			}
		}()
	}
	for _, src := range sources {
		ch := src.Listen()
		defer src.Unlisten(ch)
		go func(ch <-chan interface{}) {
			for event := range ch {
				jb.Emit(event)
			}
		}(ch)
	}
	<-ctx.Done()
}

// LoadFromText extracts track identifiers from free-form pasted text and
// loads them as the new playlist. extract.ErrNoIdentifiers is returned
// unchanged when nothing usable is found.
func (jb *Jukebox) LoadFromText(ctx context.Context, input string) error {
	ids, err := extract.All(ctx, input, jb.shortLinks)
	if err != nil {
		return err
	}
	return jb.loadIDs(ctx, ids)
}

// RestoreFromQuery loads a playlist from the URL query of a share link.
//
// The compressed parameter takes precedence over the legacy one. A missing
// or undecodable token means there is nothing to restore, it reports false
// without an error so the caller can fall back to the last session.
func (jb *Jukebox) RestoreFromQuery(ctx context.Context, q url.Values) (bool, error) {
	ids, ok, err := token.FromQuery(q)
	if err != nil {
		log.Warnf("Ignoring malformed playlist token: %v", err)
		return false, nil
	}
	if !ok || len(ids) == 0 {
		return false, nil
	}
	return true, jb.loadIDs(ctx, ids)
}

// RestoreLastSession reloads the playlist of the previous session, if one
// was saved.
func (jb *Jukebox) RestoreLastSession(ctx context.Context) (bool, error) {
	ids, ok := jb.history.LastSession()
	if !ok {
		return false, nil
	}
	return true, jb.loadIDs(ctx, ids)
}

// LoadShared fetches a shared playlist by its id and loads it.
func (jb *Jukebox) LoadShared(ctx context.Context, playlistID string) error {
	if jb.shares == nil {
		return errors.New("no share service configured")
	}
	ids, err := jb.shares.Resolve(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return extract.ErrNoIdentifiers
	}
	return jb.loadIDs(ctx, ids)
}

// LoadRecord loads a history or favorite record as the new playlist.
func (jb *Jukebox) LoadRecord(ctx context.Context, recordID string) error {
	for _, r := range append(jb.history.Records(), jb.history.Favorites()...) {
		if r.ID != recordID {
			continue
		}
		ids := make([]string, len(r.Tracks))
		for i, t := range r.Tracks {
			ids[i] = t.ID
		}
		return jb.loadIDs(ctx, ids)
	}
	return fmt.Errorf("no history record with id %q", recordID)
}

// LoadStock drains the stock list and loads everything extractable from it.
func (jb *Jukebox) LoadStock(ctx context.Context) error {
	if jb.stock == nil {
		return errors.New("no stock list configured")
	}
	urls, err := jb.stock.TakeAll()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return extract.ErrNoIdentifiers
	}
	return jb.LoadFromText(ctx, strings.Join(urls, "\n"))
}

// loadIDs hands the playlist to the player and persists it. Persistence
// failures are logged and never block playback.
func (jb *Jukebox) loadIDs(ctx context.Context, ids []string) error {
	if err := jb.player.Load(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		if jb.history.Liked(id) {
			jb.player.MarkLiked(id, true)
		}
	}

	tracks := jb.player.Tracks()
	if err := jb.history.SaveCurrent(tracks); err != nil {
		log.Errorf("Could not save current playlist: %v", err)
	}
	if err := jb.history.SaveToHistory(tracks); err != nil {
		log.Errorf("Could not record playlist in history: %v", err)
	}
	return nil
}

// Share publishes the current playlist and returns a URL to it.
//
// The share service provides a short id when it is configured and
// reachable. Otherwise the URL falls back to carrying the full compressed
// token, which works without any server side state.
func (jb *Jukebox) Share(ctx context.Context) (string, error) {
	ids := jb.player.IDs()
	if len(ids) == 0 {
		return "", errors.New("the playlist is empty")
	}

	if jb.shares != nil {
		id, err := jb.shares.Create(ctx, ids)
		if err == nil {
			return jb.urlRoot + "p/" + id, nil
		}
		log.Warnf("Share service unavailable, falling back to a token link: %v", err)
	}
	return jb.urlRoot + "?" + token.QueryParam + "=" + url.QueryEscape(token.Encode(ids)), nil
}

// SetPlayState maps the wire playstate onto a player transition.
func (jb *Jukebox) SetPlayState(ctx context.Context, state player.PlayState) error {
	switch state {
	case player.PlayStatePlaying:
		return jb.player.Play(ctx)
	case player.PlayStatePaused:
		return jb.player.Pause(ctx)
	default:
		return fmt.Errorf("unknown playstate %q", state)
	}
}

// SetLiked updates the liked set and the loaded playlist's view of it.
func (jb *Jukebox) SetLiked(trackID string, liked bool) error {
	err := jb.history.SetLiked(trackID, liked)
	jb.player.MarkLiked(trackID, liked)
	return err
}

func (jb *Jukebox) Player() *player.Player {
	return jb.player
}

func (jb *Jukebox) History() *history.Store {
	return jb.history
}

// CollectURL appends a URL to the stock list.
func (jb *Jukebox) CollectURL(u string) error {
	if jb.stock == nil {
		return errors.New("no stock list configured")
	}
	return jb.stock.Append(u)
}

// StockURLs lists the collected URLs without draining them.
func (jb *Jukebox) StockURLs() ([]string, error) {
	if jb.stock == nil {
		return nil, nil
	}
	return jb.stock.URLs()
}

// Tracks returns the loaded playlist with the liked set applied.
func (jb *Jukebox) Tracks() []library.Track {
	tracks := jb.player.Tracks()
	jb.history.ApplyLiked(tracks)
	return tracks
}
