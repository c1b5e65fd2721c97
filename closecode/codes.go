package closecode

// Type is a websocket close code, either one defined by RFC 6455 or one of the
// 4xxx codes the gateway uses to explain why it ended a session.
type Type uint16

// client side codes
const (
	// Normal ends the session; it can not be resumed afterwards.
	Normal Type = 1000
	// ClientReconnecting keeps the session alive on the server so it can be resumed.
	ClientReconnecting Type = 1001
	// Restart is written when the client drops a zombied or instructed-to-reconnect
	// connection. The session can be resumed.
	Restart Type = 1012
	// HeartbeatAckNotReceived is never sent on the wire, it marks connections closed
	// by the heartbeat process.
	HeartbeatAckNotReceived Type = 3000
)

const (
	// UnknownError We're not sure what went wrong. Try reconnecting?
	UnknownError Type = 4000 + iota
	// UnknownOpCode You sent an invalid Gateway opcode or an invalid payload for an opcode.
	UnknownOpCode
	// DecodeError You sent an invalid payload.
	DecodeError
	// NotAuthenticated You sent a payload prior to identifying.
	NotAuthenticated
	// AuthenticationFailed The account token sent with your identify payload is incorrect.
	AuthenticationFailed
	// AlreadyAuthenticated You sent more than one identify payload.
	AlreadyAuthenticated
	_ // 4006
	// InvalidSeq The sequence sent when resuming the session was invalid. Reconnect and start a new session.
	InvalidSeq
	// RateLimited You're sending payloads too quickly.
	RateLimited
	// SessionTimedOut Your session timed out. Reconnect and start a new one.
	SessionTimedOut
	// InvalidShard You sent an invalid shard when identifying.
	InvalidShard
	// ShardingRequired The session would have handled too many guilds.
	ShardingRequired
	// InvalidAPIVersion You sent an invalid version for the gateway.
	InvalidAPIVersion
	// InvalidIntents You sent an invalid intent.
	InvalidIntents
	// DisallowedIntents You sent a disallowed intent.
	DisallowedIntents
)
