// Package collector maintains the stock list, a plain text file of
// collected playlist links that can be drained to pre-fill the player.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"sunocat/src/util"
)

// ErrDuplicateURL is returned by Append when the exact URL is already in
// the stock list.
var ErrDuplicateURL = errors.New("url is already in the stock list")

// UpdateEvent is emitted when the stock list file changed, either through
// this process or by an external edit.
type UpdateEvent struct{}

// A StockList is an ordered list of URLs backed by a text file with one URL
// per line. The file may be edited externally, Watch picks up such changes.
type StockList struct {
	util.Emitter

	filename string
	lock     sync.Mutex
}

// NewStockList opens the stock list file, creating it if necessary.
func NewStockList(filename string) (*StockList, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("error creating stock list: %v", err)
	}
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating stock list: %v", err)
	}
	fd.Close()
	return &StockList{filename: filename}, nil
}

// URLs returns the current contents of the stock list in file order.
func (sl *StockList) URLs() ([]string, error) {
	sl.lock.Lock()
	defer sl.lock.Unlock()
	return sl.read()
}

// Append adds a URL to the end of the stock list.
//
// The URL is compared byte for byte with the existing entries, an exact
// duplicate is rejected with ErrDuplicateURL. Differently written URLs that
// lead to the same playlist are not detected.
func (sl *StockList) Append(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("refusing to append an empty url")
	}

	sl.lock.Lock()
	defer sl.lock.Unlock()

	urls, err := sl.read()
	if err != nil {
		return err
	}
	for _, u := range urls {
		if u == url {
			return ErrDuplicateURL
		}
	}
	if err := sl.write(append(urls, url)); err != nil {
		return err
	}
	sl.Emit(UpdateEvent{})
	return nil
}

// TakeAll returns all URLs and clears the list. The read and the clear are
// a single atomic step, concurrent appends either make it into the returned
// batch or survive for the next one.
func (sl *StockList) TakeAll() ([]string, error) {
	sl.lock.Lock()
	defer sl.lock.Unlock()

	urls, err := sl.read()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, nil
	}
	if err := sl.write(nil); err != nil {
		return nil, err
	}
	sl.Emit(UpdateEvent{})
	return urls, nil
}

// Watch emits an UpdateEvent whenever the backing file is modified by
// another process. It blocks until ctx is canceled or the watcher fails.
func (sl *StockList) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(sl.filename)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != sl.filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				log.WithField("file", sl.filename).Debugf("Stock list changed on disk")
				sl.Emit(UpdateEvent{})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithField("file", sl.filename).Errorf("Error watching stock list: %v", err)
		}
	}
}

func (sl *StockList) read() ([]string, error) {
	contents, err := os.ReadFile(sl.filename)
	if err != nil {
		return nil, fmt.Errorf("error reading stock list: %v", err)
	}
	var urls []string
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

func (sl *StockList) write(urls []string) error {
	var buf strings.Builder
	for _, u := range urls {
		buf.WriteString(u)
		buf.WriteString("\n")
	}
	if err := os.WriteFile(sl.filename, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("error writing stock list: %v", err)
	}
	return nil
}
