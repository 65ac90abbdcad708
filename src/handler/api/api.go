// Package api exposes the jukebox over a REST API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"sunocat/src/jukebox"
)

// InitRouter attaches all API routes to the specified router.
func InitRouter(r chi.Router, jukebox *jukebox.Jukebox) {
	api := API{jukebox: jukebox}
	r.Use(jsonCtx)

	r.Route("/playlist", func(r chi.Router) {
		r.Get("/", api.playlistContents)
		r.Post("/", api.playlistLoad)
		r.Patch("/", api.playlistMove)
		r.Post("/restore", api.playlistRestore)
		r.Post("/share", api.playlistShare)
		r.Post("/shared/{playlistID}", api.playlistLoadShared)
		r.Post("/stock", api.playlistLoadStock)
	})

	r.Route("/player", func(r chi.Router) {
		r.Get("/status", api.playerStatus)
		r.Post("/next", api.playerNext)
		r.Post("/previous", api.playerPrevious)
		r.Get("/playstate", api.playerGetPlaystate)
		r.Post("/playstate", api.playerSetPlaystate)
		r.Post("/seek", api.playerSeek)
		r.Post("/shuffle", api.playerToggleShuffle)
		r.Post("/repeat", api.playerSetRepeat)
	})

	r.Route("/history", func(r chi.Router) {
		r.Get("/", api.historyList)
		r.Route("/{recordID}", func(r chi.Router) {
			r.Delete("/", api.historyDelete)
			r.Post("/load", api.historyLoad)
			r.Put("/favorite", api.historyFavorite)
			r.Delete("/favorite", api.historyUnfavorite)
		})
	})
	r.Get("/favorites", api.favoritesList)

	r.Put("/tracks/{trackID}/liked", api.trackSetLiked)

	r.Route("/stock", func(r chi.Router) {
		r.Get("/", api.stockList)
		r.Post("/", api.stockAppend)
	})

	r.Get("/events", api.events)
}

// WriteError writes an error to the client.
//
// An attempt is made to tune the response format to the requestor.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("Error serving %s: %v", r.RemoteAddr, err)
	w.WriteHeader(http.StatusBadRequest)

	if r.Header.Get("X-Requested-With") == "" {
		w.Write([]byte(err.Error()))
		return
	}

	data, _ := json.Marshal(err)
	if data == nil {
		data = []byte("{}")
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"data":  (*json.RawMessage)(&data),
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
