package api

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"sunocat/src/collector"
	"sunocat/src/history"
	"sunocat/src/player"
	"sunocat/src/util/eventsource"
)

// events streams state changes to the client over Server-Sent Events. The
// initial state is sent up front so clients do not need a separate fetch.
func (api *API) events(w http.ResponseWriter, r *http.Request) {
	es, err := eventsource.Begin(w, r)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	listener := api.jukebox.Listen()
	defer api.jukebox.Unlisten(listener)

	status := api.jukebox.Player().Status(r.Context())
	es.EventJSON("playlist", map[string]interface{}{
		"index":  status.Index,
		"tracks": jsonTracks(api.jukebox.Tracks()),
	})
	es.EventJSON("playstate", map[string]interface{}{"state": status.State})
	es.EventJSON("mode", map[string]interface{}{"shuffle": status.Shuffle, "repeat": status.Repeat})

	for {
		var event interface{}
		select {
		case event = <-listener:
		case <-r.Context().Done():
			return
		}

		switch t := event.(type) {
		case player.PlaylistEvent:
			status := api.jukebox.Player().Status(r.Context())
			es.EventJSON("playlist", map[string]interface{}{
				"index":  status.Index,
				"tracks": jsonTracks(api.jukebox.Tracks()),
			})
		case player.CursorEvent:
			es.EventJSON("cursor", map[string]interface{}{"index": t.Index})
		case player.PlayStateEvent:
			es.EventJSON("playstate", map[string]interface{}{"state": t.State})
		case player.ModeEvent:
			es.EventJSON("mode", map[string]interface{}{"shuffle": t.Shuffle, "repeat": t.Repeat})
		case player.TrackResolvedEvent:
			for _, tr := range api.jukebox.Tracks() {
				if tr.ID == t.ID {
					es.EventJSON("track", jsonTrack(tr))
					break
				}
			}
		case history.UpdateEvent:
			es.EventJSON("history", struct{}{})
		case collector.UpdateEvent:
			es.EventJSON("stock", struct{}{})
		default:
			log.Debugf("Unmapped event %#v", event)
		}
	}
}
