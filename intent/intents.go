package intent

import (
	"github.com/discordpkg/gatewayclient/event"
)

// Type is a bit set of gateway intents sent with the identify payload.
type Type int

const (
	Guilds Type = 1 << iota
	GuildMembers
	GuildBans
	GuildEmojisAndStickers
	GuildIntegrations
	GuildWebhooks
	GuildInvites
	GuildVoiceStates
	GuildPresences
	GuildMessages
	GuildMessageReactions
	GuildMessageTyping
	DirectMessages
	DirectMessageReactions
	DirectMessageTyping
)

const Sum = Guilds | GuildMembers | GuildBans | GuildEmojisAndStickers | GuildIntegrations | GuildWebhooks | GuildInvites | GuildVoiceStates | GuildPresences | GuildMessages | GuildMessageReactions | GuildMessageTyping | DirectMessages | DirectMessageReactions | DirectMessageTyping

// Privileged intents must be enabled for the application before they can be identified with.
const Privileged = GuildMembers | GuildPresences

var intentsToEventsMap = map[Type][]event.Type{
	Guilds: {
		event.ChannelCreate,
		event.ChannelDelete,
		event.ChannelPinsUpdate,
		event.ChannelUpdate,
		event.GuildCreate,
		event.GuildDelete,
		event.GuildRoleCreate,
		event.GuildRoleDelete,
		event.GuildRoleUpdate,
		event.GuildUpdate,
	},
	GuildMembers: {
		event.GuildMemberAdd,
		event.GuildMemberRemove,
		event.GuildMemberUpdate,
	},
	GuildBans: {
		event.GuildBanAdd,
		event.GuildBanRemove,
	},
	GuildEmojisAndStickers: {
		event.GuildEmojisUpdate,
	},
	GuildIntegrations: {
		event.GuildIntegrationsUpdate,
	},
	GuildWebhooks: {
		event.WebhooksUpdate,
	},
	GuildInvites: {
		event.InviteCreate,
		event.InviteDelete,
	},
	GuildVoiceStates: {
		event.VoiceStateUpdate,
	},
	GuildPresences: {
		event.PresenceUpdate,
	},
	GuildMessages: {
		event.MessageCreate,
		event.MessageDelete,
		event.MessageDeleteBulk,
		event.MessageUpdate,
	},
	GuildMessageReactions: {
		event.MessageReactionAdd,
		event.MessageReactionRemove,
		event.MessageReactionRemoveAll,
	},
	GuildMessageTyping: {
		event.TypingStart,
	},
	DirectMessages: {
		event.ChannelPinsUpdate,
		event.MessageCreate,
		event.MessageDelete,
		event.MessageUpdate,
	},
	DirectMessageReactions: {
		event.MessageReactionAdd,
		event.MessageReactionRemove,
		event.MessageReactionRemoveAll,
	},
	DirectMessageTyping: {
		event.TypingStart,
	},
}

var dmIntents = map[Type]struct{}{
	DirectMessages:         {},
	DirectMessageReactions: {},
	DirectMessageTyping:    {},
}

func All() []Type {
	all := make([]Type, 0, len(intentsToEventsMap))
	for intent := range intentsToEventsMap {
		all = append(all, intent)
	}
	return all
}

func Events(intent Type) []event.Type {
	if events, ok := intentsToEventsMap[intent]; ok {
		cpy := make([]event.Type, len(events))
		copy(cpy, events)
		return cpy
	}
	return nil
}

func Merge(intents ...Type) Type {
	var merged Type
	for i := range intents {
		merged |= intents[i]
	}
	return merged
}

// Has reports whether every bit of want is set in t.
func (t Type) Has(want Type) bool {
	return t&want == want
}

func DMEventsToIntents(src []event.Type) Type {
	return eventsToIntents(src, true)
}

func GuildEventsToIntents(src []event.Type) Type {
	return eventsToIntents(src, false)
}

func eventsToIntents(src []event.Type, dm bool) (intents Type) {
	contains := func(haystack []event.Type, needle event.Type) bool {
		for i := range haystack {
			if haystack[i] == needle {
				return true
			}
		}
		return false
	}

	for i := range src {
		for intent, events := range intentsToEventsMap {
			if _, isDM := dmIntents[intent]; isDM != dm {
				continue
			}
			if contains(events, src[i]) {
				intents |= intent
			}
		}
	}

	return intents
}
