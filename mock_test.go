package gatewayclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/opcode"
	"github.com/discordpkg/gatewayclient/storage"
	"github.com/discordpkg/gatewayclient/transport"
)

// IOMock is a gateway connection driven by the test: frames pushed to readChan are read
// by the client, and everything the client writes ends up in writeChan.
type IOMock struct {
	readChan   chan []byte
	writeChan  chan *Payload
	closeCodes chan uint16

	mu       sync.Mutex
	closed   chan struct{}
	closeErr error
}

var _ Conn = &IOMock{}

func NewIOMock() *IOMock {
	return &IOMock{
		readChan:   make(chan []byte, 32),
		writeChan:  make(chan *Payload, 64),
		closeCodes: make(chan uint16, 4),
		closed:     make(chan struct{}),
	}
}

func (m *IOMock) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *IOMock) shutdown(err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return false
	}
	m.closeErr = err
	close(m.closed)
	return true
}

func (m *IOMock) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-m.readChan:
		return data, nil
	case <-m.closed:
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closeErr != nil {
			return nil, m.closeErr
		}
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *IOMock) Write(data []byte) error {
	if m.isClosed() {
		return net.ErrClosed
	}

	payload := &Payload{}
	if err := encoding.Unmarshal(data, payload); err != nil {
		return err
	}
	m.writeChan <- payload
	return nil
}

func (m *IOMock) WriteClose(code uint16) error {
	if !m.shutdown(nil) {
		return net.ErrClosed
	}
	m.closeCodes <- code
	return nil
}

func (m *IOMock) Close() error {
	m.shutdown(nil)
	return nil
}

// push queues a frame for the client to read.
func (m *IOMock) push(frame string) {
	m.readChan <- []byte(frame)
}

// serverClose simulates a close frame sent by the gateway.
func (m *IOMock) serverClose(code uint16, reason string) {
	m.shutdown(&transport.CloseError{Code: code, Reason: reason})
}

func (m *IOMock) nextWrite(t *testing.T) *Payload {
	t.Helper()
	select {
	case payload := <-m.writeChan:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("client did not write anything")
		return nil
	}
}

// nextWriteOf skips writes until one with the given op code shows up. Heartbeats may
// interleave with the writes a test is after.
func (m *IOMock) nextWriteOf(t *testing.T, op opcode.Type) *Payload {
	t.Helper()
	for {
		payload := m.nextWrite(t)
		if payload.Op == op {
			return payload
		}
	}
}

func (m *IOMock) expectNoWrite(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case payload := <-m.writeChan:
		t.Fatalf("unexpected write: %s", payload)
	case <-time.After(wait):
	}
}

func (m *IOMock) nextCloseCode(t *testing.T) uint16 {
	t.Helper()
	select {
	case code := <-m.closeCodes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("client did not close the connection")
		return 0
	}
}

type NoopRateLimiter struct{}

func (rl *NoopRateLimiter) Try() (bool, time.Duration) {
	return true, 0
}

type DenyRateLimiter struct{}

func (rl *DenyRateLimiter) Try() (bool, time.Duration) {
	return false, time.Hour
}

// mockDialer hands out the given connections in order.
func mockDialer(conns ...*IOMock) Dialer {
	var mu sync.Mutex
	return func(ctx context.Context, _ string) (Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(conns) == 0 {
			return nil, net.ErrClosed
		}
		conn := conns[0]
		conns = conns[1:]
		return conn, nil
	}
}

func commonOptions() []Option {
	return []Option{
		WithBotToken("token"),
		WithCommandRateLimiter(&NoopRateLimiter{}),
		WithIdentifyRateLimiter(&NoopRateLimiter{}),
		WithRegistry(storage.NewRegistry()),
		WithBackOff(func() backoff.BackOff {
			return &backoff.ZeroBackOff{}
		}),
	}
}

func NewClientMust(t *testing.T, options ...Option) *Client {
	t.Helper()

	client, err := NewClient(append(commonOptions(), options...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

// attach makes mock the current connection of the client, without a run loop.
func attach(t *testing.T, client *Client, mock *IOMock) *connection {
	t.Helper()

	conn := newConnection(context.Background(), client, mock)
	client.mu.Lock()
	client.conn = conn
	client.mu.Unlock()
	t.Cleanup(conn.teardown)
	return conn
}
