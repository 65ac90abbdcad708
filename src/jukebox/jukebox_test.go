package jukebox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunocat/src/history"
	"sunocat/src/media"
	"sunocat/src/player"
	"sunocat/src/token"
)

const (
	idA = "11111111-0000-0000-0000-000000000000"
	idB = "22222222-0000-0000-0000-000000000000"
)

type stubShares struct {
	stored map[string][]string
	err    error
}

func (s *stubShares) Create(ctx context.Context, ids []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	id := fmt.Sprintf("pl%d", len(s.stored)+1)
	s.stored[id] = ids
	return id, nil
}

func (s *stubShares) Resolve(ctx context.Context, playlistID string) ([]string, error) {
	if ids, ok := s.stored[playlistID]; ok {
		return ids, nil
	}
	return nil, errors.New("not found")
}

func newTestJukebox(t *testing.T, shares Shares) *Jukebox {
	t.Helper()
	hist, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	pl := player.New(media.NewDummyElement(), nil)
	return New(pl, hist, nil, nil, shares, "https://music.example.com/")
}

func TestLoadFromTextRecordsHistory(t *testing.T) {
	jb := newTestJukebox(t, nil)
	ctx := context.Background()

	input := strings.Join([]string{
		"https://app.example.com/song/" + idA,
		"some noise",
		idB,
	}, "\n")
	require.NoError(t, jb.LoadFromText(ctx, input))

	assert.Equal(t, []string{idA, idB}, jb.Player().IDs())

	ids, ok := jb.History().LastSession()
	require.True(t, ok)
	assert.Equal(t, []string{idA, idB}, ids)
	assert.Len(t, jb.History().Records(), 1)
}

func TestRestoreFromQueryPrecedence(t *testing.T) {
	jb := newTestJukebox(t, nil)
	ctx := context.Background()

	q := url.Values{}
	q.Set(token.QueryParam, token.Encode([]string{idA}))
	q.Set(token.LegacyQueryParam, idB)
	ok, err := jb.RestoreFromQuery(ctx, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{idA}, jb.Player().IDs())
}

func TestRestoreFromQueryMalformedToken(t *testing.T) {
	jb := newTestJukebox(t, nil)

	q := url.Values{}
	q.Set(token.QueryParam, "!!!not-a-token!!!")
	ok, err := jb.RestoreFromQuery(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreLastSession(t *testing.T) {
	jb := newTestJukebox(t, nil)
	ctx := context.Background()

	ok, err := jb.RestoreLastSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, jb.LoadFromText(ctx, idA))
	require.NoError(t, jb.LoadFromText(ctx, idB))

	ok, err = jb.RestoreLastSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{idB}, jb.Player().IDs())
}

func TestShareAndLoadShared(t *testing.T) {
	shares := &stubShares{stored: map[string][]string{}}
	jb := newTestJukebox(t, shares)
	ctx := context.Background()

	require.NoError(t, jb.LoadFromText(ctx, idA+"\n"+idB))

	shareURL, err := jb.Share(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://music.example.com/p/pl1", shareURL)

	require.NoError(t, jb.LoadFromText(ctx, idB))
	require.NoError(t, jb.LoadShared(ctx, "pl1"))
	assert.Equal(t, []string{idA, idB}, jb.Player().IDs())
}

func TestShareFallsBackToToken(t *testing.T) {
	shares := &stubShares{stored: map[string][]string{}, err: errors.New("service down")}
	jb := newTestJukebox(t, shares)
	ctx := context.Background()

	require.NoError(t, jb.LoadFromText(ctx, idA))

	shareURL, err := jb.Share(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(shareURL)
	require.NoError(t, err)
	ids, err := token.Decode(parsed.Query().Get(token.QueryParam))
	require.NoError(t, err)
	assert.Equal(t, []string{idA}, ids)
}

func TestShareEmptyPlaylist(t *testing.T) {
	jb := newTestJukebox(t, nil)
	_, err := jb.Share(context.Background())
	assert.Error(t, err)
}

func TestLikedSurvivesReload(t *testing.T) {
	jb := newTestJukebox(t, nil)
	ctx := context.Background()

	require.NoError(t, jb.LoadFromText(ctx, idA+"\n"+idB))
	require.NoError(t, jb.SetLiked(idA, true))

	require.NoError(t, jb.LoadFromText(ctx, idA))
	tracks := jb.Tracks()
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].Liked)
}
