package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// CloseError is returned by Read once the remote side sent a close frame.
type CloseError struct {
	Code   uint16
	Reason string
}

var _ error = &CloseError{}

func (err *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: %d %s", int64(err.Code), err.Reason)
}

// Dialer opens gateway connections.
type Dialer struct {
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Dial validates the url and performs the websocket handshake.
func (d *Dialer) Dial(ctx context.Context, URLString string) (*Conn, error) {
	URLString, err := ValidateDialURL(URLString)
	if err != nil {
		return nil, err
	}

	dialer := ws.Dialer{Timeout: d.Timeout}
	conn, br, _, err := dialer.Dial(ctx, URLString)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %s. %w", URLString, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// frames sent right after the handshake are buffered in br
	var source io.Reader = conn
	if br != nil {
		source = br
	}

	c := &Conn{
		conn:   conn,
		logger: logger.WithField("url", URLString),
	}
	c.control = wsutil.ControlFrameHandler(&lockedWriter{c}, ws.StateClientSide)
	c.reader = wsutil.Reader{
		Source:          source,
		State:           ws.StateClientSide,
		CheckUTF8:       true,
		SkipHeaderCheck: false,
		OnIntermediate:  c.control,
	}
	return c, nil
}

// Dial opens a connection with the default dialer.
func Dial(ctx context.Context, URLString string) (*Conn, error) {
	return (&Dialer{}).Dial(ctx, URLString)
}

// Conn is a client side websocket connection speaking the gateway protocol. Read must
// only be called from one goroutine, writes may happen from several.
type Conn struct {
	conn    net.Conn
	reader  wsutil.Reader
	control wsutil.FrameHandlerFunc
	logger  logrus.FieldLogger

	writeMu sync.Mutex
	closed  atomic.Bool
}

type lockedWriter struct {
	c *Conn
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// Read blocks until the next text or binary message arrives. Control frames are
// answered on the way. A close frame from the server results in a *CloseError.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, net.ErrClosed
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return nil, c.readError(ctx, err)
		}

		if hdr.OpCode.IsControl() {
			// discord does send close frames so these must be handled
			if err := c.control(hdr, &c.reader); err != nil {
				var errClose wsutil.ClosedError
				if errors.As(err, &errClose) {
					c.closed.Store(true)
					return nil, &CloseError{Code: uint16(errClose.Code), Reason: errClose.Reason}
				}
				return nil, fmt.Errorf("failed to handle control frame. %w", err)
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := c.reader.Discard(); err != nil {
				return nil, c.readError(ctx, err)
			}
			c.logger.WithField("frame", hdr.OpCode).Debug("discarded websocket frame")
			continue
		}

		data, err := io.ReadAll(&c.reader)
		if err != nil {
			return nil, c.readError(ctx, err)
		}
		return data, nil
	}
}

func (c *Conn) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	errMsg := err.Error()
	closedConnection := strings.Contains(errMsg, "use of closed network connection")
	if closedConnection || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || c.closed.Load() {
		return net.ErrClosed
	}
	return fmt.Errorf("failed to read frame. %w", err)
}

// Write sends data as a single text message.
func (c *Conn) Write(data []byte) error {
	if c.closed.Load() {
		return net.ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteClientMessage(c.conn, ws.OpText, data)
}

// WriteClose sends a close frame with the given code and closes the connection. The
// code decides whether the session may be resumed later.
func (c *Conn) WriteClose(code uint16) error {
	if !c.closed.CompareAndSwap(false, true) {
		return net.ErrClosed
	}

	c.writeMu.Lock()
	body := ws.NewCloseFrameBody(ws.StatusCode(code), "")
	err := wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
	c.writeMu.Unlock()

	_ = c.conn.Close()
	if err != nil {
		return fmt.Errorf("unable to write close frame. %w", err)
	}
	return nil
}

// Close drops the connection without a close frame.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}
