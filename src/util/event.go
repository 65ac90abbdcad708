package util

import (
	"sync"
	"time"
)

// An Eventer is a type that can emit events to an arbitrary number of
// listeners.
type Eventer interface {
	Events() *Emitter
}

type Emitter struct {
	// The release attribute determines how much time an event should be
	// buffered to prevent the emission of duplicate events.
	// A zero value will disable buffering.
	//
	// Buffered events must be comparable.
	Release time.Duration

	listeners       map[<-chan interface{}]chan interface{}
	listenerClosers map[<-chan interface{}]chan struct{}
	lock            sync.RWMutex

	release map[interface{}]struct{}
}

// Events implements the util.Eventer interface.
func (emitter *Emitter) Events() *Emitter {
	return emitter
}

func (emitter *Emitter) init() {
	emitter.lock.RLock()
	shouldInit := emitter.listeners == nil
	emitter.lock.RUnlock()
	if shouldInit {
		emitter.lock.Lock()
		if emitter.listeners == nil {
			emitter.listeners = map[<-chan interface{}]chan interface{}{}
			emitter.listenerClosers = map[<-chan interface{}]chan struct{}{}
			emitter.release = map[interface{}]struct{}{}
		}
		emitter.lock.Unlock()
	}
}

func (emitter *Emitter) broadcast(event interface{}) {
	emitter.lock.RLock()
	defer emitter.lock.RUnlock()
	for key, listener := range emitter.listeners {
		closer := emitter.listenerClosers[key]
		go func(listener chan interface{}, closer chan struct{}) {
			select {
			case listener <- event:
			case <-closer:
			}
		}(listener, closer)
	}
}

func (emitter *Emitter) Emit(event interface{}) {
	emitter.init()

	emitter.lock.RLock()
	defer emitter.lock.RUnlock()

	if emitter.Release == 0 {
		go emitter.broadcast(event)
		return
	}

	// Check whether the event is already scheduled.
	if _, ok := emitter.release[event]; ok {
		return
	}

	go func() {
		emitter.lock.Lock()
		emitter.release[event] = struct{}{}
		emitter.lock.Unlock()

		time.Sleep(emitter.Release)
		emitter.broadcast(event)

		emitter.lock.Lock()
		delete(emitter.release, event)
		emitter.lock.Unlock()
	}()
}

func (emitter *Emitter) Listen() <-chan interface{} {
	emitter.init()

	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	ch := make(chan interface{}, 1)
	emitter.listeners[ch] = ch
	emitter.listenerClosers[ch] = make(chan struct{})
	return ch
}

func (emitter *Emitter) Unlisten(ch <-chan interface{}) {
	emitter.init()

	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	// Signal any remaining broadcasts to abort writing to the channel.
	close(emitter.listenerClosers[ch])

	// Ok, now clean up everything.
	close(emitter.listeners[ch])
	delete(emitter.listenerClosers, ch)
	delete(emitter.listeners, ch)
}
