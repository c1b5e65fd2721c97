// Package gatewayclient is a client for the discord gateway: a persistent websocket
// session that streams events in order, paired with a REST transport and a per session
// entity cache.
package gatewayclient

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/discordpkg/gatewayclient/closecode"
	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/event"
	"github.com/discordpkg/gatewayclient/intent"
	"github.com/discordpkg/gatewayclient/opcode"
)

type RawMessage = encoding.RawMessage

const (
	NormalCloseCode  = uint16(closecode.Normal)
	RestartCloseCode = uint16(closecode.Restart)

	// APIVersion is the gateway version requested when dialing.
	APIVersion = "10"

	DefaultGatewayURL = "wss://gateway.discord.gg/?v=" + APIVersion + "&encoding=json"
)

// Payload is a single gateway frame.
type Payload struct {
	Op        opcode.Type `json:"op"`
	Data      RawMessage  `json:"d"`
	Seq       int64       `json:"s,omitempty"`
	EventName event.Type  `json:"t,omitempty"`
}

func (p Payload) String() string {
	return fmt.Sprintf("{\n\t\"op\":%d,\n\t\"t\":%q,\n\t\"data\": %s\n\t\"seq\":%d\n}", p.Op, p.EventName, string(p.Data), p.Seq)
}

// DiscordError describes why the gateway ended a connection, either by a close frame or
// by an op code.
type DiscordError struct {
	CloseCode closecode.Type
	OpCode    opcode.Type
	Reason    string
}

func (c *DiscordError) Error() string {
	return fmt.Sprintf("[%d | %d]: %s", c.CloseCode, c.OpCode, c.Reason)
}

func (c DiscordError) CanReconnect() bool {
	return closecode.CanReconnectAfter(c.CloseCode) || opcode.CanReconnectAfter(c.OpCode)
}

type IdentifyConnectionProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type Identify struct {
	BotToken       string      `json:"token"`
	Properties     interface{} `json:"properties"`
	Compress       bool        `json:"compress,omitempty"`
	LargeThreshold uint8       `json:"large_threshold,omitempty"`
	Presence       interface{} `json:"presence,omitempty"`
	Intents        intent.Type `json:"intents"`
}

type Resume struct {
	BotToken       string `json:"token"`
	SessionID      string `json:"session_id"`
	SequenceNumber int64  `json:"seq"`
}

type Hello struct {
	HeartbeatIntervalMilli int64 `json:"heartbeat_interval"`
}

func (h Hello) Interval() time.Duration {
	return time.Duration(h.HeartbeatIntervalMilli) * time.Millisecond
}

// Ready is the payload of the READY dispatch event, with the url to resume the session on.
type Ready struct {
	discordgo.Ready
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// GuildSync is the payload of the legacy GUILD_SYNC op code.
type GuildSync struct {
	ID        string                `json:"id"`
	Large     bool                  `json:"large"`
	Members   []*discordgo.Member   `json:"members"`
	Presences []*discordgo.Presence `json:"presences"`
}

// Conn is a single gateway connection. Read is only called by the goroutine running
// the client, while writes may come from the heartbeat and user goroutines.
type Conn interface {
	// Read blocks until the next message. A close frame from the server is reported as
	// a *transport.CloseError.
	Read(ctx context.Context) ([]byte, error)
	Write(data []byte) error
	// WriteClose sends a close frame and closes the connection.
	WriteClose(code uint16) error
	Close() error
}

// Dialer opens a connection to the given gateway url.
type Dialer func(ctx context.Context, URLString string) (Conn, error)
