package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sunocat/src/history"
)

func jsonRecord(r history.Record) interface{} {
	return map[string]interface{}{
		"id":         r.ID,
		"timestamp":  r.Timestamp,
		"trackCount": r.TrackCount(),
		"firstTitle": r.FirstTitle,
		"tracks":     r.Tracks,
	}
}

func jsonRecords(inList []history.Record) []interface{} {
	outList := make([]interface{}, len(inList))
	for i, r := range inList {
		outList[i] = jsonRecord(r)
	}
	return outList
}

func (api *API) historyList(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"records": jsonRecords(api.jukebox.History().Records()),
	})
}

func (api *API) historyDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.History().Delete(chi.URLParam(r, "recordID")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) historyLoad(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.LoadRecord(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tracks": jsonTracks(api.jukebox.Tracks()),
	})
}

func (api *API) historyFavorite(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.History().Favorite(chi.URLParam(r, "recordID")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) historyUnfavorite(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.History().Unfavorite(chi.URLParam(r, "recordID")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) favoritesList(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"records": jsonRecords(api.jukebox.History().Favorites()),
	})
}

func (api *API) stockList(w http.ResponseWriter, r *http.Request) {
	urls, err := api.jukebox.StockURLs()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"urls": urls,
	})
}

func (api *API) stockAppend(w http.ResponseWriter, r *http.Request) {
	var data struct {
		URL string `json:"url"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.CollectURL(data.URL); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}
