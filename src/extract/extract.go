// Package extract turns free-form pasted text into canonical track
// identifiers.
package extract

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNoIdentifiers is returned when an entire input yields not a single
// identifier. It is the only extraction failure that is surfaced to the user.
var ErrNoIdentifiers = errors.New("no valid track links in input")

// A ShortLinkResolver resolves an indirect short-link token to a canonical
// identifier. An empty identifier with a nil error means the token is
// unknown.
type ShortLinkResolver interface {
	ResolveShortLink(ctx context.Context, token string) (string, error)
}

const (
	songPathSegment      = "/song/"
	shortLinkPathSegment = "/s/"
)

// Line extracts a single identifier from one line of text.
//
// Matching is first-match-wins: a song path containing the canonical
// hyphenated identifier, then a bare identifier anywhere in the line, then a
// short-link path segment which is resolved through the external service.
// The boolean result is false when the line matches nothing.
func Line(ctx context.Context, line string, shortLinks ShortLinkResolver) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	if i := strings.Index(line, songPathSegment); i != -1 {
		if id, ok := canonicalID(line[i+len(songPathSegment):]); ok {
			return id, true
		}
	}
	if id, ok := bareID(line); ok {
		return id, true
	}
	if i := strings.Index(line, shortLinkPathSegment); i != -1 && shortLinks != nil {
		token := pathSegment(line[i+len(shortLinkPathSegment):])
		if token != "" {
			id, err := shortLinks.ResolveShortLink(ctx, token)
			if err == nil && id != "" {
				if id, ok := canonicalID(id); ok {
					return id, true
				}
			}
		}
	}
	return "", false
}

// All extracts identifiers from a multi-line input, one identifier per line
// at most, preserving line order.
//
// Lines are processed independently and concurrently so that a slow
// short-link resolution on one line does not hold up the others. Lines that
// match nothing are dropped silently. If nothing at all matches,
// ErrNoIdentifiers is returned.
func All(ctx context.Context, input string, shortLinks ShortLinkResolver) ([]string, error) {
	lines := strings.Split(input, "\n")
	results := make([]string, len(lines))
	found := make([]bool, len(lines))

	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func(i int, line string) {
			defer wg.Done()
			results[i], found[i] = Line(ctx, line, shortLinks)
		}(i, line)
	}
	wg.Wait()

	ids := make([]string, 0, len(lines))
	for i := range lines {
		if found[i] {
			ids = append(ids, results[i])
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}
	return ids, nil
}

// canonicalID validates that s starts with a canonical 36 character
// hyphenated identifier and returns it in normalized lowercase form.
func canonicalID(s string) (string, bool) {
	if len(s) < 36 {
		return "", false
	}
	id, err := uuid.Parse(s[:36])
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// bareID scans for a canonical identifier anywhere in the line.
func bareID(line string) (string, bool) {
	for i := 0; i+36 <= len(line); i++ {
		// Cheap pre-check on the hyphen layout before handing the candidate
		// to the parser.
		if line[i+8] != '-' {
			continue
		}
		if id, ok := canonicalID(line[i:]); ok {
			return id, true
		}
	}
	return "", false
}

func pathSegment(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '/', '?', '#', '&', ' ', '\t', '\r':
			return s[:i]
		}
	}
	return s
}
