package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sunocat/src/jukebox"
	"sunocat/src/library"
	"sunocat/src/player"
)

// API contains the state that is accessible over the REST API.
type API struct {
	jukebox *jukebox.Jukebox
}

func jsonTrack(tr library.Track) interface{} {
	var struc struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Artist     string `json:"artist,omitempty"`
		Art        string `json:"art,omitempty"`
		Liked      bool   `json:"liked"`
		Resolution string `json:"resolution"`
		URL        string `json:"url"`
	}
	struc.ID = tr.ID
	struc.Title = tr.Title
	struc.Artist = tr.Artist
	struc.Art = tr.Art
	struc.Liked = tr.Liked
	struc.Resolution = string(tr.Resolution)
	struc.URL = tr.MediaURL()
	return struc
}

func jsonTracks(inList []library.Track) []interface{} {
	outList := make([]interface{}, len(inList))
	for i, tr := range inList {
		outList[i] = jsonTrack(tr)
	}
	return outList
}

func jsonStatus(status player.Status) interface{} {
	return map[string]interface{}{
		"state":   status.State,
		"index":   status.Index,
		"count":   status.TrackCount,
		"shuffle": status.Shuffle,
		"repeat":  status.Repeat,
		"time":    int(status.Elapsed / time.Second),
	}
}

func (api *API) playlistContents(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Player().Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"current": status.Index,
		"tracks":  jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playlistLoad(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Text string `json:"text"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.LoadFromText(r.Context(), data.Text); err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tracks": jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playlistMove(w http.ResponseWriter, r *http.Request) {
	var data struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.Player().Move(r.Context(), data.From, data.To); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

// playlistRestore reloads a playlist from the query of a share link, falling
// back to the last session when the query carries nothing usable.
func (api *API) playlistRestore(w http.ResponseWriter, r *http.Request) {
	restored, err := api.jukebox.RestoreFromQuery(r.Context(), r.URL.Query())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if !restored {
		if restored, err = api.jukebox.RestoreLastSession(r.Context()); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"restored": restored,
		"tracks":   jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playlistShare(w http.ResponseWriter, r *http.Request) {
	shareURL, err := api.jukebox.Share(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"url": shareURL,
	})
}

func (api *API) playlistLoadShared(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.LoadShared(r.Context(), chi.URLParam(r, "playlistID")); err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tracks": jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playlistLoadStock(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.LoadStock(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tracks": jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playerStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(jsonStatus(api.jukebox.Player().Status(r.Context())))
}

func (api *API) playerNext(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.Player().Next(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playerPrevious(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.Player().Previous(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playerGetPlaystate(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Player().Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playstate": status.State,
	})
}

func (api *API) playerSetPlaystate(w http.ResponseWriter, r *http.Request) {
	var data struct {
		State string `json:"playstate"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.SetPlayState(r.Context(), player.PlayState(data.State)); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playerSeek(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Time int `json:"time"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.Player().SeekRelative(r.Context(), time.Duration(data.Time)*time.Second); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playerToggleShuffle(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.Player().ToggleShuffle(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	status := api.jukebox.Player().Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"shuffle": status.Shuffle,
		"tracks":  jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) playerSetRepeat(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Repeat string `json:"repeat"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	mode, err := player.ParseRepeatMode(data.Repeat)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.jukebox.Player().SetRepeatMode(mode)
	w.Write([]byte("{}"))
}

func (api *API) trackSetLiked(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Liked bool `json:"liked"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.SetLiked(chi.URLParam(r, "trackID"), data.Liked); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}
