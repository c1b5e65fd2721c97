package opcode

import "strconv"

// Type is the gateway operation code found in the "op" field of every frame.
type Type int

const (
	Dispatch            Type = 0
	Heartbeat           Type = 1
	Identify            Type = 2
	PresenceUpdate      Type = 3
	VoiceStateUpdate    Type = 4
	Resume              Type = 6
	Reconnect           Type = 7
	RequestGuildMembers Type = 8
	InvalidSession      Type = 9
	Hello               Type = 10
	HeartbeatACK        Type = 11
	GuildSync           Type = 12
)

var names = map[Type]string{
	Dispatch:            "DISPATCH",
	Heartbeat:           "HEARTBEAT",
	Identify:            "IDENTIFY",
	PresenceUpdate:      "PRESENCE_UPDATE",
	VoiceStateUpdate:    "VOICE_STATE_UPDATE",
	Resume:              "RESUME",
	Reconnect:           "RECONNECT",
	RequestGuildMembers: "REQUEST_GUILD_MEMBERS",
	InvalidSession:      "INVALIDATE_SESSION",
	Hello:               "HELLO",
	HeartbeatACK:        "HEARTBEAT_ACK",
	GuildSync:           "GUILD_SYNC",
}

// String returns the protocol name of the op code, or the number for codes
// this client does not know about.
func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "OPCODE(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether the op code is part of the protocol version this client targets.
func (t Type) Known() bool {
	_, ok := names[t]
	return ok
}

// Receivable lists the op codes the server may send to a client.
func Receivable() []Type {
	return []Type{
		Dispatch,
		Heartbeat,
		Reconnect,
		InvalidSession,
		Hello,
		HeartbeatACK,
		GuildSync,
	}
}
