package media

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"sunocat/src/util"
)

// MPDElement plays audio through an MPD daemon. The daemon's queue is used as
// a single-track scratch area; playlist logic stays with the player.
type MPDElement struct {
	util.Emitter

	network, addr, passwd string

	// Running the idle watcher on the same connection as command traffic
	// confuses MPD, so the watcher gets its own connection.
	watcher *mpd.Watcher

	lock sync.Mutex
	// True while a stop is one we issued ourselves. An unsolicited stop
	// means the track played to its end.
	expectStop bool
	playing    bool
}

// ConnectMPD establishes a connection to the MPD daemon at the specified
// address.
func ConnectMPD(network, addr string, password *string) (*MPDElement, error) {
	if network == "" {
		network = "tcp"
	}
	var passwd string
	if password != nil {
		passwd = *password
	}

	watcher, err := mpd.NewWatcher(network, addr, passwd, "player")
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MPD: %w", err)
	}

	el := &MPDElement{
		network: network,
		addr:    addr,
		passwd:  passwd,
		watcher: watcher,
	}
	go el.eventLoop()
	return el, nil
}

func (el *MPDElement) withMpd(fn func(*mpd.Client) error) error {
	client, err := mpd.DialAuthenticated(el.network, el.addr, el.passwd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (el *MPDElement) eventLoop() {
	for {
		select {
		case _, ok := <-el.watcher.Event:
			if !ok {
				return
			}
			el.checkPlayerState()
		case err, ok := <-el.watcher.Error:
			if !ok {
				return
			}
			log.Errorf("MPD watcher: %v", err)
			el.Emit(ErrorEvent{Error: err.Error()})
		}
	}
}

func (el *MPDElement) checkPlayerState() {
	var state string
	err := el.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		state = status["state"]
		return nil
	})
	if err != nil {
		log.Errorf("MPD status: %v", err)
		return
	}

	el.lock.Lock()
	endOfTrack := state == "stop" && el.playing && !el.expectStop
	if state == "stop" {
		el.playing = false
		el.expectStop = false
	}
	el.lock.Unlock()

	if endOfTrack {
		el.Emit(EndOfTrackEvent{})
	}
}

// Play implements the media.Element interface.
func (el *MPDElement) Play(ctx context.Context, url string) error {
	el.lock.Lock()
	el.expectStop = el.playing
	el.lock.Unlock()

	err := el.withMpd(func(mpdc *mpd.Client) error {
		if err := mpdc.Clear(); err != nil {
			return err
		}
		if err := mpdc.Add(url); err != nil {
			return err
		}
		return mpdc.Play(0)
	})
	if err != nil {
		return fmt.Errorf("mpd play %q: %w", url, err)
	}

	el.lock.Lock()
	el.playing = true
	el.expectStop = false
	el.lock.Unlock()
	return nil
}

// Pause implements the media.Element interface.
func (el *MPDElement) Pause(ctx context.Context) error {
	return el.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Pause(true)
	})
}

// Resume implements the media.Element interface.
func (el *MPDElement) Resume(ctx context.Context) error {
	return el.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Pause(false)
	})
}

// Stop implements the media.Element interface.
func (el *MPDElement) Stop(ctx context.Context) error {
	el.lock.Lock()
	el.expectStop = true
	el.playing = false
	el.lock.Unlock()
	return el.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Stop()
	})
}

// SeekBy implements the media.Element interface.
func (el *MPDElement) SeekBy(ctx context.Context, delta time.Duration) error {
	return el.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		song, err := strconv.Atoi(status["song"])
		if err != nil {
			// Nothing is playing, nothing to seek.
			return nil
		}
		elapsed, _ := strconv.ParseFloat(status["elapsed"], 64)
		duration, _ := strconv.ParseFloat(status["duration"], 64)

		target := elapsed + delta.Seconds()
		target = math.Max(0, target)
		if duration > 0 {
			target = math.Min(target, duration)
		}
		return mpdc.Seek(song, int(target))
	})
}

// Elapsed implements the media.Element interface.
func (el *MPDElement) Elapsed(ctx context.Context) (time.Duration, error) {
	var elapsed time.Duration
	err := el.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		sec, _ := strconv.ParseFloat(status["elapsed"], 64)
		elapsed = time.Duration(sec * float64(time.Second))
		return nil
	})
	return elapsed, err
}

// Close shuts down the idle watcher connection.
func (el *MPDElement) Close() error {
	return el.watcher.Close()
}
