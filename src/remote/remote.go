// Package remote implements clients for the catalog and share services.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sunocat/src/library"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// A LookupClient resolves track metadata against the catalog service. It
// implements library.Lookup.
type LookupClient struct {
	baseURL string
}

// NewLookupClient creates a metadata client for the catalog service at the
// specified base URL.
func NewLookupClient(baseURL string) *LookupClient {
	return &LookupClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Lookup fetches the metadata of a single track.
//
// Fields absent from the response stay at their zero value, the caller
// decides on placeholders.
func (client *LookupClient) Lookup(ctx context.Context, id string) (library.Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/tracks/%s", client.baseURL, url.PathEscape(id)), nil)
	if err != nil {
		return library.Meta{}, err
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return library.Meta{}, fmt.Errorf("error looking up track %q: %v", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return library.Meta{}, fmt.Errorf("error looking up track %q: http status %d", id, res.StatusCode)
	}

	var data struct {
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		Thumbnail string `json:"thumbnail"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return library.Meta{}, fmt.Errorf("error looking up track %q: %v", id, err)
	}
	return library.Meta{
		Title:  data.Title,
		Artist: data.Artist,
		Art:    data.Thumbnail,
	}, nil
}

// A ShortLinkClient expands shortened share links. It implements
// extract.ShortLinkResolver.
type ShortLinkClient struct {
	baseURL string
}

// NewShortLinkClient creates a client for the short link service at the
// specified base URL.
func NewShortLinkClient(baseURL string) *ShortLinkClient {
	return &ShortLinkClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// ResolveShortLink looks up the target of a short link token. An unknown
// token yields an empty string without error so extraction can move on.
func (client *ShortLinkClient) ResolveShortLink(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/s/%s", client.baseURL, url.PathEscape(token)), nil)
	if err != nil {
		return "", err
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error resolving short link %q: %v", token, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error resolving short link %q: http status %d", token, res.StatusCode)
	}

	var data struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("error resolving short link %q: %v", token, err)
	}
	return data.Target, nil
}

// A ShareClient stores playlists with the share service in exchange for a
// short playlist id.
type ShareClient struct {
	baseURL string
}

// NewShareClient creates a client for the share service at the specified
// base URL.
func NewShareClient(baseURL string) *ShareClient {
	return &ShareClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Create stores the identifier list and returns the id under which it can
// be retrieved.
func (client *ShareClient) Create(ctx context.Context, ids []string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"tracks": ids})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/playlists", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sharing playlist: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("error sharing playlist: http status %d", res.StatusCode)
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("error sharing playlist: %v", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("error sharing playlist: response carries no id")
	}
	return data.ID, nil
}

// Resolve retrieves the identifier list stored under a playlist id.
func (client *ShareClient) Resolve(ctx context.Context, playlistID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/playlists/%s", client.baseURL, url.PathEscape(playlistID)), nil)
	if err != nil {
		return nil, err
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error resolving playlist %q: %v", playlistID, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error resolving playlist %q: http status %d", playlistID, res.StatusCode)
	}

	var data struct {
		Tracks []string `json:"tracks"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error resolving playlist %q: %v", playlistID, err)
	}
	return data.Tracks, nil
}
