package event

// Type is the name of a dispatch event, found in the "t" field of DISPATCH frames.
type Type string

// Raw is not sent by the gateway. Listeners on Raw observe every decoded frame.
const Raw Type = "RAW"

const (
	// Ready contains the initial state information
	Ready Type = "READY"
	// Resumed response to Resume
	Resumed Type = "RESUMED"

	ChannelCreate     Type = "CHANNEL_CREATE"
	ChannelUpdate     Type = "CHANNEL_UPDATE"
	ChannelDelete     Type = "CHANNEL_DELETE"
	ChannelPinsUpdate Type = "CHANNEL_PINS_UPDATE"

	GuildCreate        Type = "GUILD_CREATE"
	GuildUpdate        Type = "GUILD_UPDATE"
	GuildDelete        Type = "GUILD_DELETE"
	GuildBanAdd        Type = "GUILD_BAN_ADD"
	GuildBanRemove     Type = "GUILD_BAN_REMOVE"
	GuildMemberAdd     Type = "GUILD_MEMBER_ADD"
	GuildMemberRemove  Type = "GUILD_MEMBER_REMOVE"
	GuildMemberUpdate  Type = "GUILD_MEMBER_UPDATE"
	GuildMembersChunk  Type = "GUILD_MEMBERS_CHUNK"
	GuildRoleCreate    Type = "GUILD_ROLE_CREATE"
	GuildRoleUpdate    Type = "GUILD_ROLE_UPDATE"
	GuildRoleDelete    Type = "GUILD_ROLE_DELETE"
	GuildEmojisUpdate  Type = "GUILD_EMOJIS_UPDATE"

	GuildIntegrationsUpdate Type = "GUILD_INTEGRATIONS_UPDATE"

	InviteCreate Type = "INVITE_CREATE"
	InviteDelete Type = "INVITE_DELETE"

	// GuildSync is the legacy bulk member sync, delivered as op 12 rather than as a dispatch.
	GuildSync Type = "GUILD_SYNC"

	MessageCreate            Type = "MESSAGE_CREATE"
	MessageUpdate            Type = "MESSAGE_UPDATE"
	MessageDelete            Type = "MESSAGE_DELETE"
	MessageDeleteBulk        Type = "MESSAGE_DELETE_BULK"
	MessageReactionAdd       Type = "MESSAGE_REACTION_ADD"
	MessageReactionRemove    Type = "MESSAGE_REACTION_REMOVE"
	MessageReactionRemoveAll Type = "MESSAGE_REACTION_REMOVE_ALL"

	PresenceUpdate    Type = "PRESENCE_UPDATE"
	TypingStart       Type = "TYPING_START"
	UserUpdate        Type = "USER_UPDATE"
	VoiceStateUpdate  Type = "VOICE_STATE_UPDATE"
	VoiceServerUpdate Type = "VOICE_SERVER_UPDATE"
	WebhooksUpdate    Type = "WEBHOOKS_UPDATE"
)

// Cached lists the dispatch events whose payloads are materialised into the entity cache.
func Cached() []Type {
	return []Type{
		Ready,
		GuildCreate,
		GuildUpdate,
		GuildDelete,
		ChannelCreate,
		ChannelUpdate,
		ChannelDelete,
		GuildMemberAdd,
		GuildMemberUpdate,
		GuildMemberRemove,
		GuildMembersChunk,
		UserUpdate,
	}
}

func (t Type) String() string {
	return string(t)
}
