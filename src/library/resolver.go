package library

import (
	"context"
	"html"
	"time"

	"github.com/matryer/try"
	log "github.com/sirupsen/logrus"
)

// Meta is the display metadata offered by the lookup service for one track.
type Meta struct {
	Title  string
	Artist string
	Art    string
}

// A Lookup retrieves display metadata for a single track identifier.
type Lookup interface {
	Lookup(ctx context.Context, id string) (Meta, error)
}

const resolveAttempts = 3

// A Resolver fetches metadata for freshly loaded track lists.
//
// Lookups for the tracks of one list run concurrently and complete in no
// particular order. Results are handed to an apply callback rather than
// written to the list directly; whoever owns the list decides whether a
// result is still relevant. A canceled context stops retries and suppresses
// delivery, which is how results of a superseded load are kept from ever
// becoming observable.
type Resolver struct {
	lookup Lookup

	// BaseDelay is the delay after the first failed attempt. It doubles on
	// every subsequent failure.
	BaseDelay time.Duration
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{
		lookup:    lookup,
		BaseDelay: 500 * time.Millisecond,
	}
}

// Resolve starts a lookup for every identifier and returns immediately.
//
// The apply callback receives the outcome per track, concurrently but never
// after ctx is canceled. A nil error carries usable metadata, a non-nil error
// means all attempts are exhausted. Individual failures are isolated, there
// is no combined error for the batch.
func (r *Resolver) Resolve(ctx context.Context, ids []string, apply func(id string, meta Meta, err error)) {
	for _, id := range ids {
		go func(id string) {
			meta, err := r.resolveOne(ctx, id)
			if ctx.Err() != nil {
				return
			}
			apply(id, meta, err)
		}(id)
	}
}

func (r *Resolver) resolveOne(ctx context.Context, id string) (Meta, error) {
	var meta Meta
	err := try.Do(func(attempt int) (bool, error) {
		var err error
		meta, err = r.lookup.Lookup(ctx, id)
		if err == nil || attempt >= resolveAttempts {
			return false, err
		}

		delay := r.BaseDelay * time.Duration(1<<uint(attempt-1))
		log.WithField("track", id).Debugf("Metadata lookup failed, retrying in %v: %v", delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		return true, err
	})
	if err != nil {
		log.WithField("track", id).Warnf("Metadata lookup gave up: %v", err)
		return Meta{}, err
	}

	// Lookup responses may carry encoded HTML entities. Stored metadata is
	// always in literal display form.
	meta.Title = html.UnescapeString(meta.Title)
	meta.Artist = html.UnescapeString(meta.Artist)
	return meta, nil
}
