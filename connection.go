package gatewayclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/discordpkg/gatewayclient/command"
	"github.com/discordpkg/gatewayclient/encoding"
)

var errNotConnected = errors.New("no open gateway connection")

// connection is the state of one websocket connection. Everything started for it, the
// heartbeat and delayed resume or identify attempts, ends with it.
type connection struct {
	client *Client
	conn   Conn
	ctx    context.Context
	cancel context.CancelFunc

	// readied is set once READY or RESUMED arrived on this connection
	readied atomic.Bool

	mu        sync.Mutex
	heartbeat *heartbeat
	stopBeat  context.CancelFunc
	timers    []*time.Timer
}

func newConnection(ctx context.Context, client *Client, conn Conn) *connection {
	ctx, cancel := context.WithCancel(ctx)
	return &connection{
		client: client,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
}

// write sends a command without consulting any rate limiter.
func (c *connection) write(cmd command.Type, data interface{}) error {
	if c.ctx.Err() != nil {
		return net.ErrClosed
	}

	var raw RawMessage
	switch v := data.(type) {
	case RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		var err error
		if raw, err = encoding.Marshal(data); err != nil {
			return fmt.Errorf("unable to marshal %d payload. %w", cmd, err)
		}
	}

	packet, err := encoding.Marshal(&Payload{Op: cmd.OpCode(), Data: raw})
	if err != nil {
		return fmt.Errorf("unable to marshal packet. %w", err)
	}

	if err = c.conn.Write(packet); err != nil {
		return fmt.Errorf("unable to write %d payload. %w", cmd, err)
	}
	return nil
}

func (c *connection) writeHeartbeat() error {
	return c.write(command.Heartbeat, c.client.dispatcher.sequence.heartbeatData())
}

// startHeartbeat replaces the heartbeat of the connection.
func (c *connection) startHeartbeat(interval time.Duration) *heartbeat {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopBeat != nil {
		c.stopBeat()
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.heartbeat = &heartbeat{conn: c, interval: interval}
	c.stopBeat = cancel
	c.client.heartbeatInterval.Store(interval)

	go c.heartbeat.run(ctx)
	return c.heartbeat
}

func (c *connection) currentHeartbeat() *heartbeat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeat
}

func (c *connection) ack() {
	beat := c.currentHeartbeat()
	if beat == nil {
		return
	}
	if latency, ok := beat.ack(); ok {
		c.client.latency.Store(latency)
	}
}

// schedule runs fn after delay, unless the connection ended in the meantime.
func (c *connection) schedule(delay time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}

	timer := time.AfterFunc(delay, func() {
		if c.ctx.Err() != nil {
			return
		}
		fn()
	})
	c.timers = append(c.timers, timer)
}

// close writes a close frame with the given code. The read loop then ends and tears the
// connection down.
func (c *connection) close(code uint16) error {
	err := c.conn.WriteClose(code)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// teardown stops the heartbeat and every scheduled function, and drops the socket.
func (c *connection) teardown() {
	c.cancel()

	c.mu.Lock()
	for _, timer := range c.timers {
		timer.Stop()
	}
	c.timers = nil
	if c.stopBeat != nil {
		c.stopBeat()
	}
	c.mu.Unlock()

	_ = c.conn.WriteClose(RestartCloseCode)
	_ = c.conn.Close()
}
