package gatewayclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"

	"github.com/discordpkg/gatewayclient/closecode"
	"github.com/discordpkg/gatewayclient/command"
	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/event"
	"github.com/discordpkg/gatewayclient/intent"
	"github.com/discordpkg/gatewayclient/internal/util"
	"github.com/discordpkg/gatewayclient/rest"
	"github.com/discordpkg/gatewayclient/storage"
	"github.com/discordpkg/gatewayclient/transport"
)

var (
	ErrReconnectAttemptsExhausted = errors.New("gave up reconnecting to the gateway")
	ErrInternalCommand            = errors.New("command is managed by the client and can not be sent manually")
	ErrAlreadyRunning             = errors.New("client is already running")
)

const (
	defaultInvalidSessionMin = 1 * time.Second
	defaultInvalidSessionMax = 5 * time.Second

	membersPageSize = 1000
)

func NewClient(options ...Option) (*Client, error) {
	client := &Client{
		gatewayURL:        DefaultGatewayURL,
		invalidSessionMin: defaultInvalidSessionMin,
		invalidSessionMax: defaultInvalidSessionMax,
		handle:            storage.NewHandle(),
		queue:             newCommandQueue(),
	}

	for i := range options {
		if err := options[i](client); err != nil {
			return nil, err
		}
	}

	if client.botToken == "" {
		return nil, errors.New("missing bot token - use WithBotToken")
	}

	if client.intents == 0 && (len(client.guildEvents) > 0 || len(client.directMessageEvents) > 0) {
		// derive intents
		client.intents |= intent.GuildEventsToIntents(client.guildEvents)
		client.intents |= intent.DMEventsToIntents(client.directMessageEvents)

		// allow the specified events only
		if client.allowlist == nil {
			client.allowlist = util.NewSet[event.Type]()
		}
		client.allowlist.Add(client.guildEvents...)
		client.allowlist.Add(client.directMessageEvents...)
	}
	if client.allowlist != nil {
		// crucial for normal function
		client.allowlist.Add(event.Ready, event.Resumed)
	}

	if client.logger == nil {
		client.logger = nopLogger()
	}
	client.emitter = newEmitter(client.logger)
	if client.commandRateLimiter == nil {
		client.commandRateLimiter = NewCommandRateLimiter()
	}
	if client.identifyRateLimiter == nil {
		client.identifyRateLimiter = NewLocalIdentifyRateLimiter()
	}
	if client.newBackOff == nil {
		client.newBackOff = func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.MaxInterval = 2 * time.Minute
			policy.MaxElapsedTime = 0
			return policy
		}
	}
	if client.dialer == nil {
		dialer := &transport.Dialer{Timeout: 30 * time.Second, Logger: client.logger}
		client.dialer = func(ctx context.Context, URLString string) (Conn, error) {
			conn, err := dialer.Dial(ctx, URLString)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}
	}
	if client.registry == nil {
		client.registry = storage.DefaultRegistry
	}

	// connection properties
	if client.connectionProperties == nil {
		client.connectionProperties = &IdentifyConnectionProperties{
			OS:      runtime.GOOS,
			Browser: "github.com/discordpkg/gatewayclient",
			Device:  "github.com/discordpkg/gatewayclient",
		}
	}

	client.lifetime, client.kill = context.WithCancel(context.Background())
	client.cache = newCache(client.registry, client.handle)
	client.dispatcher = NewDispatcher(client)
	client.registry.Register(client)
	return client, nil
}

// Client is a single gateway session. The session outlives connections: after a
// disconnect the client reconnects and resumes where it left off.
type Client struct {
	botToken string

	// events that are not found in the allow list are not emitted
	allowlist           util.Set[event.Type]
	directMessageEvents []event.Type
	guildEvents         []event.Type

	intents              intent.Type
	gatewayURL           string
	logger               Logger
	dialer               Dialer
	rest                 *rest.Transport
	connectionProperties *IdentifyConnectionProperties
	presence             interface{}
	commandRateLimiter   CommandRateLimiter
	identifyRateLimiter  IdentifyRateLimiter
	newBackOff           func() backoff.BackOff
	maxReconnectAttempts int
	invalidSessionMin    time.Duration
	invalidSessionMax    time.Duration
	registry             *storage.Registry
	largeThreshold       uint8
	compress             bool

	handle     storage.Handle
	dispatcher *Dispatcher
	emitter    *emitter
	queue      *commandQueue
	cache      *Cache

	lifetime context.Context
	kill     context.CancelFunc

	mu               sync.Mutex
	conn             *connection
	sessionID        string
	resumeGatewayURL string

	ready             atomic.Bool
	running           atomic.Bool
	closed            atomic.Bool
	reconnectNow      atomic.Bool
	heartbeatInterval atomic.Duration
	latency           atomic.Duration
}

var _ storage.Owner = &Client{}

// StorageHandle identifies the client as owner of its cache storages.
func (c *Client) StorageHandle() storage.Handle {
	return c.handle
}

func (c *Client) Cache() *Cache {
	return c.cache
}

func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatcher
}

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// HeartbeatInterval is the interval the gateway asked for in the last HELLO.
func (c *Client) HeartbeatInterval() time.Duration {
	return c.heartbeatInterval.Load()
}

// Latency is the round trip time of the last acknowledged heartbeat.
func (c *Client) Latency() time.Duration {
	return c.latency.Load()
}

// Ready reports whether the session is established and commands are sent right away.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

func (c *Client) current() *connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setSession(sessionID, resumeGatewayURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.resumeGatewayURL = resumeGatewayURL
}

func (c *Client) clearSession() {
	c.setSession("", "")
}

func (c *Client) markReady() {
	if conn := c.current(); conn != nil {
		conn.readied.Store(true)
	}
	c.ready.Store(true)
	c.flushQueue()
}

func (c *Client) flushQueue() {
	go func() {
		if err := c.queue.flush(c.sendNow); err != nil {
			c.logger.WithError(err).Error("unable to send queued commands")
		}
	}()
}

func (c *Client) allowEvent(evt event.Type) bool {
	if c.allowlist != nil {
		return c.allowlist.Contains(evt)
	}
	return true
}

func (c *Client) invalidSessionDelay() time.Duration {
	spread := c.invalidSessionMax - c.invalidSessionMin
	if spread <= 0 {
		return c.invalidSessionMin
	}
	return c.invalidSessionMin + time.Duration(rand.Int63n(int64(spread)))
}

func (c *Client) dialURL() string {
	c.mu.Lock()
	sessionID, resumeURL := c.sessionID, c.resumeGatewayURL
	c.mu.Unlock()

	if sessionID == "" || resumeURL == "" {
		return c.gatewayURL
	}

	URLString, err := transport.GatewayURL(resumeURL, APIVersion)
	if err != nil {
		c.logger.WithError(err).Warn("invalid resume gateway url, using the default")
		return c.gatewayURL
	}
	return URLString
}

// identify starts a new session. When the identify rate limiter denies it, the attempt
// is postponed rather than blocking the connection.
func (c *Client) identify(conn *connection) error {
	if ok, wait := c.identifyRateLimiter.Try(); !ok {
		c.logger.WithField("wait", wait).Info("identify rate limited, postponing")
		conn.schedule(wait, func() {
			if err := c.identify(conn); err != nil {
				c.logger.WithError(err).Error("unable to identify")
			}
		})
		return nil
	}

	return conn.write(command.Identify, &Identify{
		BotToken:       c.botToken,
		Properties:     c.connectionProperties,
		Compress:       c.compress,
		LargeThreshold: c.largeThreshold,
		Presence:       c.presence,
		Intents:        c.intents,
	})
}

func (c *Client) resume(conn *connection) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return errors.New("missing session id, can not resume connection")
	}

	seq, _ := c.dispatcher.CurrentSequence()
	return conn.write(command.Resume, &Resume{
		BotToken:       c.botToken,
		SessionID:      sessionID,
		SequenceNumber: seq,
	})
}

// Send writes a command to the gateway. Until the session is ready, commands are queued
// and sent in order once READY or RESUMED arrives.
func (c *Client) Send(cmd command.Type, data interface{}) error {
	if cmd.Internal() {
		return ErrInternalCommand
	}
	if c.closed.Load() {
		return net.ErrClosed
	}

	if c.ready.Load() && c.queue.Len() == 0 {
		return c.sendNow(cmd, data)
	}

	c.queue.push(cmd, data)
	if c.ready.Load() {
		// a flush may have drained the queue before the push
		c.flushQueue()
	}
	return nil
}

func (c *Client) sendNow(cmd command.Type, data interface{}) error {
	conn := c.current()
	if conn == nil {
		return errNotConnected
	}

	// heartbeats bypass the rate limiter, reserve some calls for them when
	// configuring a custom limiter.
	if ok, timeout := c.commandRateLimiter.Try(); !ok {
		select {
		case <-time.After(timeout):
		case <-conn.ctx.Done():
			return net.ErrClosed
		}
	}
	return conn.write(cmd, data)
}

// SyncGuilds requests a GUILD_SYNC for each of the guilds.
func (c *Client) SyncGuilds(guildIDs ...string) error {
	if len(guildIDs) == 0 {
		return errors.New("no guilds to sync")
	}
	return c.Send(command.GuildSync, guildIDs)
}

// FetchGuildMembers lists every member of the guild over REST and merges them into the
// cache.
func (c *Client) FetchGuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	if c.rest == nil {
		return nil, errors.New("no rest transport configured - use WithRESTTransport")
	}

	var (
		members []*discordgo.Member
		after   string
	)
	for {
		query := fmt.Sprintf("limit=%d", membersPageSize)
		if after != "" {
			query += "&after=" + after
		}

		resp, err := c.rest.Do(ctx, http.MethodGet, "/guilds/"+guildID+"/members", &rest.Options{
			HTTPErrors: true,
			Query:      query,
		})
		if err != nil {
			return members, err
		}

		var page []*discordgo.Member
		if err = encoding.Unmarshal(resp.Body, &page); err != nil {
			return members, fmt.Errorf("unable to decode guild members. %w", err)
		}
		if err = c.cache.MergeMembers(guildID, page); err != nil {
			return members, err
		}
		members = append(members, page...)

		if len(page) < membersPageSize || page[len(page)-1].User == nil {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// Run connects to the gateway and processes events until ctx ends, Close is called, or
// the gateway ends the session in a way that does not allow reconnecting.
func (c *Client) Run(ctx context.Context) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.lifetime, cancel)
	defer stop()

	policy := backoff.WithContext(c.newBackOff(), ctx)
	var attempts int
	for {
		readied, err := c.connect(ctx)
		if c.closed.Load() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var discordErr *DiscordError
		if errors.As(err, &discordErr) && !discordErr.CanReconnect() {
			c.logger.WithError(err).Error("gateway ended the session")
			return err
		}

		if readied {
			attempts = 0
			policy.Reset()
		}
		if c.reconnectNow.Swap(false) {
			continue
		}

		attempts++
		if c.maxReconnectAttempts > 0 && attempts > c.maxReconnectAttempts {
			return fmt.Errorf("%w after %d attempts. %w", ErrReconnectAttemptsExhausted, attempts-1, err)
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("%w. %w", ErrReconnectAttemptsExhausted, err)
		}
		c.logger.WithError(err).WithField("wait", wait).Info("connection lost, reconnecting")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			if c.closed.Load() {
				return nil
			}
			return ctx.Err()
		}
	}
}

// connect runs a single connection until it ends. readied reports whether the session
// became ready on it.
func (c *Client) connect(ctx context.Context) (readied bool, err error) {
	URLString := c.dialURL()
	c.logger.WithField("url", URLString).Debug("connecting to gateway")

	ws, err := c.dialer(ctx, URLString)
	if err != nil {
		return false, fmt.Errorf("unable to connect to gateway. %w", err)
	}

	conn := newConnection(ctx, c, ws)
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.ready.Store(false)

	defer func() {
		conn.teardown()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		c.ready.Store(false)
	}()

	for {
		data, err := ws.Read(conn.ctx)
		if err != nil {
			return conn.readied.Load(), c.readError(err)
		}
		c.dispatcher.Handle(data)
	}
}

// readError turns a close frame into a *DiscordError, and forgets the session when the
// close code does not allow resuming it.
func (c *Client) readError(err error) error {
	var closeErr *transport.CloseError
	if !errors.As(err, &closeErr) {
		return err
	}

	code := closecode.Type(closeErr.Code)
	if !closecode.CanResumeAfter(code) {
		c.clearSession()
		c.dispatcher.sequence.Reset()
	}
	return &DiscordError{CloseCode: code, Reason: closeErr.Reason}
}

// Close ends the session. The connection is closed with the normal close code, pending
// timers are cancelled, and the client is unregistered as owner of its cache.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return net.ErrClosed
	}

	if conn := c.current(); conn != nil {
		if err := conn.close(NormalCloseCode); err != nil {
			c.logger.WithError(err).Debug("unable to write close frame")
		}
		conn.teardown()
	}
	c.kill()
	c.ready.Store(false)
	c.registry.Unregister(c.handle)
	return nil
}
