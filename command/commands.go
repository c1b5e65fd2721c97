package command

import "github.com/discordpkg/gatewayclient/opcode"

// Type is an op code the client is allowed to send.
type Type int

const (
	_ Type = iota
	Heartbeat
	Identify
	UpdatePresence
	UpdateVoiceState
	_
	Resume
	_
	RequestGuildMembers
	_
	_
	_
	GuildSync
)

func (t Type) OpCode() opcode.Type {
	return opcode.Type(t)
}

// Internal reports whether the command belongs to the session handshake and liveness
// logic, and should not be sent by users of the client.
func (t Type) Internal() bool {
	return t == Heartbeat || t == Identify || t == Resume
}

func All() []Type {
	return []Type{
		Heartbeat,
		Identify,
		RequestGuildMembers,
		Resume,
		UpdatePresence,
		UpdateVoiceState,
		GuildSync,
	}
}
