package gatewayclient

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/opcode"
)

var ErrHandlerNotFound = errors.New("can not find handler")

type HandlerNotFoundError struct {
	OpCode opcode.Type
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrHandlerNotFound, e.OpCode)
}

func (e *HandlerNotFoundError) Unwrap() error {
	return ErrHandlerNotFound
}

// OpHandler processes frames of a single op code.
type OpHandler interface {
	Handle(frame *Payload) error
}

// Dispatcher routes every inbound frame of a connection to the handler registered for
// its op code. Frames are handled one at a time, in the order they are received.
type Dispatcher struct {
	client   *Client
	sequence SequenceTracker
	handlers map[opcode.Type]OpHandler
}

func NewDispatcher(client *Client) *Dispatcher {
	d := &Dispatcher{client: client}
	d.handlers = map[opcode.Type]OpHandler{
		opcode.Dispatch:       &dispatchHandler{d},
		opcode.Heartbeat:      &heartbeatHandler{d},
		opcode.Reconnect:      &reconnectHandler{d},
		opcode.InvalidSession: &invalidSessionHandler{d},
		opcode.Hello:          &helloHandler{d},
		opcode.HeartbeatACK:   &heartbeatACKHandler{d},
		opcode.GuildSync:      &guildSyncHandler{d},
	}
	return d
}

// CurrentSequence returns the last sequence number received, if any.
func (d *Dispatcher) CurrentSequence() (int64, bool) {
	return d.sequence.Load()
}

func (d *Dispatcher) LookupHandler(op opcode.Type) (OpHandler, error) {
	if handler, ok := d.handlers[op]; ok {
		return handler, nil
	}
	return nil, &HandlerNotFoundError{OpCode: op}
}

// Handle decodes and processes one frame. Failures are logged and never escape, a bad
// frame must not stop the frames behind it. Frames arriving after the client was closed
// are dropped.
func (d *Dispatcher) Handle(raw []byte) {
	log := d.client.logger
	if d.client.closed.Load() {
		log.Debug("session is closed, dropping frame")
		return
	}

	payload := &Payload{}
	if err := encoding.Decode(raw, payload); err != nil {
		log.WithError(err).WithField("length", len(raw)).Error("failed to decode frame")
		return
	}

	log = log.WithFields(logrus.Fields{"op": payload.Op, "seq": payload.Seq})
	if payload.EventName != "" {
		log = log.WithField("event", payload.EventName)
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("recovered from panic while handling frame: %v", r)
		}
	}()

	d.client.emitter.emitRaw(payload)

	if payload.Seq != 0 {
		if previous, regressed := d.sequence.Store(payload.Seq); regressed {
			log.WithField("previous", previous).Debug("sequence number went backwards")
		}
	}

	handler, err := d.LookupHandler(payload.Op)
	if err != nil {
		log.Debug("no handler registered for op code")
		return
	}

	if err = handler.Handle(payload); err != nil {
		log.WithError(err).Error("failed to handle frame")
	}
}
