// Package token converts ordered track identifier lists to and from the
// compact URL-safe form used for sharing and address bar state.
package token

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	// QueryParam carries the compressed playlist token in shared URLs.
	QueryParam = "p"
	// LegacyQueryParam carries a plain comma-joined identifier list. Old
	// shared links still use it; new links are never written with it.
	LegacyQueryParam = "ids"

	// separator joins identifiers before compression. It never occurs inside
	// a canonical identifier.
	separator = ","
)

// A DecodeError indicates a malformed or corrupt token. Callers treat it as
// "no playlist to restore", never as a fatal condition.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode playlist token: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode maps an ordered identifier list to a URL-safe token.
//
// Order and multiplicity are preserved exactly, Decode is the exact inverse.
// The empty list encodes to the empty token.
func Encode(ids []string) string {
	if len(ids) == 0 {
		return ""
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		// Only reachable with an invalid compression level.
		panic(err)
	}
	io.WriteString(w, strings.Join(ids, separator))
	w.Close()
	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

// Decode maps a token produced by Encode back to its identifier list.
func Decode(token string) ([]string, error) {
	if token == "" {
		return []string{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()
	joined, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return splitIDs(string(joined)), nil
}

// DecodeLegacy decodes the uncompressed comma-joined form of old shared
// links.
func DecodeLegacy(raw string) []string {
	return splitIDs(raw)
}

// FromQuery restores an identifier list from URL query parameters.
//
// The compressed parameter takes precedence over the legacy one when both
// are present. The boolean result is false when the query holds no playlist
// state at all.
func FromQuery(q url.Values) ([]string, bool, error) {
	if q.Has(QueryParam) {
		ids, err := Decode(q.Get(QueryParam))
		if err != nil {
			return nil, true, err
		}
		return ids, true, nil
	}
	if q.Has(LegacyQueryParam) {
		return DecodeLegacy(q.Get(LegacyQueryParam)), true, nil
	}
	return nil, false, nil
}

func splitIDs(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, separator)
}
