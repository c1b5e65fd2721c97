package gatewayclient

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/atomic"
)

var ErrHeartbeatAckNotReceived = errors.New("did not receive a heartbeat ack since the last heartbeat")

// heartbeat keeps a single connection alive. It must be discarded with the connection.
type heartbeat struct {
	conn     *connection
	interval time.Duration

	awaitingACK atomic.Bool
	sentAt      atomic.Time
}

func (h *heartbeat) run(ctx context.Context) {
	jitter := rand.Float64()
	initialDelay := time.Duration(float64(h.interval) * jitter)

	select {
	case <-time.After(initialDelay):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	log := h.conn.client.logger.WithField("interval", h.interval)
	for {
		if err := h.beat(); err != nil {
			if errors.Is(err, ErrHeartbeatAckNotReceived) {
				log.Warn("heartbeat ack missing, connection is treated as dead")
				_ = h.conn.close(RestartCloseCode)
			} else if ctx.Err() == nil {
				log.WithError(err).Error("failed to send heartbeat")
			}
			return
		}
		log.Debug("sent heartbeat")

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// beat sends one heartbeat, unless the previous one was never acknowledged.
func (h *heartbeat) beat() error {
	if !h.awaitingACK.CompareAndSwap(false, true) {
		return ErrHeartbeatAckNotReceived
	}
	h.sentAt.Store(time.Now())
	return h.conn.writeHeartbeat()
}

// ack clears the awaiting flag and returns the round trip time of the last heartbeat.
func (h *heartbeat) ack() (time.Duration, bool) {
	if !h.awaitingACK.CompareAndSwap(true, false) {
		return 0, false
	}
	return time.Since(h.sentAt.Load()), true
}
