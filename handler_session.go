package gatewayclient

import (
	"errors"
	"fmt"

	"github.com/discordpkg/gatewayclient/encoding"
)

// heartbeatHandler answers op 1, a heartbeat requested by the gateway. It is sent right
// away and is not subject to the command rate limiter.
type heartbeatHandler struct {
	dispatcher *Dispatcher
}

func (h *heartbeatHandler) Handle(_ *Payload) error {
	conn := h.dispatcher.client.current()
	if conn == nil {
		return errNotConnected
	}
	if err := conn.writeHeartbeat(); err != nil {
		return fmt.Errorf("discord requested heartbeat, but was unable to send one. %w", err)
	}
	return nil
}

// heartbeatACKHandler handles op 11.
type heartbeatACKHandler struct {
	dispatcher *Dispatcher
}

func (h *heartbeatACKHandler) Handle(_ *Payload) error {
	conn := h.dispatcher.client.current()
	if conn == nil {
		return errNotConnected
	}
	conn.ack()
	return nil
}

// reconnectHandler handles op 7. The connection is closed in a resumable way, the run
// loop dials again straight away and resumes on HELLO.
type reconnectHandler struct {
	dispatcher *Dispatcher
}

func (h *reconnectHandler) Handle(_ *Payload) error {
	client := h.dispatcher.client
	conn := client.current()
	if conn == nil {
		return errNotConnected
	}

	client.logger.Info("gateway requested a reconnect")
	client.reconnectNow.Store(true)
	if err := conn.close(RestartCloseCode); err != nil {
		return fmt.Errorf("unable to close connection for reconnect. %w", err)
	}
	return nil
}

// invalidSessionHandler handles op 9. The d field tells whether the session can be
// resumed. Either way the next attempt is delayed by a random amount.
type invalidSessionHandler struct {
	dispatcher *Dispatcher
}

func (h *invalidSessionHandler) Handle(frame *Payload) error {
	client := h.dispatcher.client
	conn := client.current()
	if conn == nil {
		return errNotConnected
	}

	var resumable bool
	if len(frame.Data) > 0 {
		if err := encoding.Unmarshal(frame.Data, &resumable); err != nil {
			return fmt.Errorf("unable to decode invalid session payload. %w", err)
		}
	}

	client.ready.Store(false)
	delay := client.invalidSessionDelay()
	log := client.logger.WithField("delay", delay)

	if resumable {
		log.Info("session invalidated, resuming")
		conn.schedule(delay, func() {
			if err := client.resume(conn); err != nil {
				client.logger.WithError(err).Error("unable to resume session")
			}
		})
		return nil
	}

	log.Info("session invalidated, identifying")
	client.clearSession()
	h.dispatcher.sequence.Reset()
	conn.schedule(delay, func() {
		if err := client.identify(conn); err != nil {
			client.logger.WithError(err).Error("unable to identify")
		}
	})
	return nil
}

// helloHandler handles op 10: start the heartbeat, then resume the session or start a
// new one.
type helloHandler struct {
	dispatcher *Dispatcher
}

func (h *helloHandler) Handle(frame *Payload) error {
	client := h.dispatcher.client
	conn := client.current()
	if conn == nil {
		return errNotConnected
	}

	var hello Hello
	if err := encoding.Unmarshal(frame.Data, &hello); err != nil {
		return fmt.Errorf("failed to extract heartbeat from hello message. %w", err)
	}
	if hello.HeartbeatIntervalMilli <= 0 {
		return errors.New("hello message is missing the heartbeat interval")
	}

	conn.startHeartbeat(hello.Interval())

	if client.SessionID() != "" {
		if err := client.resume(conn); err != nil {
			return fmt.Errorf("sending resume failed. %w", err)
		}
		return nil
	}
	if err := client.identify(conn); err != nil {
		return fmt.Errorf("identify failed. %w", err)
	}
	return nil
}
