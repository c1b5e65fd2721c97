package gatewayclient

import (
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/discordpkg/gatewayclient/event"
)

type listener struct {
	id   uint64
	fn   func(interface{})
	once bool
}

// emitter fans events out to listeners. Listeners are called synchronously, in
// registration order, from the goroutine handling the frame. A panicking listener is
// logged and does not affect the other listeners or the frame.
type emitter struct {
	logger Logger

	mu     sync.RWMutex
	nextID uint64
	raw    []*listener
	events map[event.Type][]*listener
}

func newEmitter(logger Logger) *emitter {
	return &emitter{
		logger: logger,
		events: make(map[event.Type][]*listener),
	}
}

func (e *emitter) add(evt event.Type, fn func(interface{}), once bool) (remove func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	l := &listener{id: e.nextID, fn: fn, once: once}
	if evt == event.Raw {
		e.raw = append(e.raw, l)
	} else {
		e.events[evt] = append(e.events[evt], l)
	}

	return func() {
		e.remove(evt, l.id)
	}
}

func (e *emitter) remove(evt event.Type, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	listeners := e.events[evt]
	if evt == event.Raw {
		listeners = e.raw
	}

	kept := make([]*listener, 0, len(listeners))
	for _, l := range listeners {
		if l.id != id {
			kept = append(kept, l)
		}
	}

	if evt == event.Raw {
		e.raw = kept
	} else if len(kept) == 0 {
		delete(e.events, evt)
	} else {
		e.events[evt] = kept
	}
}

// snapshot returns the listeners of evt and drops the once listeners among them.
func (e *emitter) snapshot(evt event.Type) []*listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	listeners := e.events[evt]
	if evt == event.Raw {
		listeners = e.raw
	}
	if len(listeners) == 0 {
		return nil
	}

	snapshot := make([]*listener, len(listeners))
	copy(snapshot, listeners)

	kept := listeners[:0:0]
	for _, l := range listeners {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if evt == event.Raw {
		e.raw = kept
	} else {
		e.events[evt] = kept
	}
	return snapshot
}

func (e *emitter) emit(evt event.Type, value interface{}) {
	for _, l := range e.snapshot(evt) {
		e.call(evt, l, value)
	}
}

func (e *emitter) call(evt event.Type, l *listener, value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"event": evt,
				"stack": string(debug.Stack()),
			}).Errorf("recovered from panic in listener: %v", r)
		}
	}()
	l.fn(value)
}

func (e *emitter) emitRaw(payload *Payload) {
	e.emit(event.Raw, payload)
}

// OnRaw registers a listener for every decoded frame, regardless of op code. The
// returned function removes the listener.
func (c *Client) OnRaw(fn func(payload *Payload)) (remove func()) {
	return c.emitter.add(event.Raw, func(v interface{}) {
		fn(v.(*Payload))
	}, false)
}

// On registers a listener for a dispatch event. Known events carry a pointer to the
// matching discordgo type, unknown events carry the RawMessage of the d field.
func (c *Client) On(evt event.Type, fn func(data interface{})) (remove func()) {
	return c.emitter.add(evt, fn, false)
}

// Once is like On, but the listener is removed after its first call.
func (c *Client) Once(evt event.Type, fn func(data interface{})) (remove func()) {
	return c.emitter.add(evt, fn, true)
}

// On registers a typed listener. Events whose payload is not a T are skipped:
//
//	gatewayclient.On(client, event.GuildCreate, func(evt *discordgo.GuildCreate) {
//		fmt.Println(evt.Name)
//	})
func On[T any](c *Client, evt event.Type, fn func(data T)) (remove func()) {
	return c.On(evt, func(data interface{}) {
		if typed, ok := data.(T); ok {
			fn(typed)
		}
	})
}
