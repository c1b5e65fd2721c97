package command

import (
	"testing"

	"github.com/discordpkg/gatewayclient/opcode"
)

func TestType_OpCode(t *testing.T) {
	pairs := map[Type]opcode.Type{
		Heartbeat:           opcode.Heartbeat,
		Identify:            opcode.Identify,
		UpdatePresence:      opcode.PresenceUpdate,
		UpdateVoiceState:    opcode.VoiceStateUpdate,
		Resume:              opcode.Resume,
		RequestGuildMembers: opcode.RequestGuildMembers,
		GuildSync:           opcode.GuildSync,
	}
	for cmd, op := range pairs {
		if cmd.OpCode() != op {
			t.Errorf("command %d maps to op %d, wants %d", int(cmd), int(cmd.OpCode()), int(op))
		}
	}

	if len(All()) != len(pairs) {
		t.Error("All() is missing commands")
	}
}
