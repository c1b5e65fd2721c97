package gatewayclient

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/event"
)

var models = map[event.Type]func() interface{}{
	event.Ready:   func() interface{} { return &Ready{} },
	event.Resumed: func() interface{} { return &discordgo.Resumed{} },

	event.ChannelCreate:     func() interface{} { return &discordgo.ChannelCreate{} },
	event.ChannelUpdate:     func() interface{} { return &discordgo.ChannelUpdate{} },
	event.ChannelDelete:     func() interface{} { return &discordgo.ChannelDelete{} },
	event.ChannelPinsUpdate: func() interface{} { return &discordgo.ChannelPinsUpdate{} },

	event.GuildCreate:             func() interface{} { return &discordgo.GuildCreate{} },
	event.GuildUpdate:             func() interface{} { return &discordgo.GuildUpdate{} },
	event.GuildDelete:             func() interface{} { return &discordgo.GuildDelete{} },
	event.GuildBanAdd:             func() interface{} { return &discordgo.GuildBanAdd{} },
	event.GuildBanRemove:          func() interface{} { return &discordgo.GuildBanRemove{} },
	event.GuildMemberAdd:          func() interface{} { return &discordgo.GuildMemberAdd{} },
	event.GuildMemberRemove:       func() interface{} { return &discordgo.GuildMemberRemove{} },
	event.GuildMemberUpdate:       func() interface{} { return &discordgo.GuildMemberUpdate{} },
	event.GuildMembersChunk:       func() interface{} { return &discordgo.GuildMembersChunk{} },
	event.GuildRoleCreate:         func() interface{} { return &discordgo.GuildRoleCreate{} },
	event.GuildRoleUpdate:         func() interface{} { return &discordgo.GuildRoleUpdate{} },
	event.GuildRoleDelete:         func() interface{} { return &discordgo.GuildRoleDelete{} },
	event.GuildEmojisUpdate:       func() interface{} { return &discordgo.GuildEmojisUpdate{} },
	event.GuildIntegrationsUpdate: func() interface{} { return &discordgo.GuildIntegrationsUpdate{} },

	event.InviteCreate: func() interface{} { return &discordgo.InviteCreate{} },
	event.InviteDelete: func() interface{} { return &discordgo.InviteDelete{} },

	event.MessageCreate:            func() interface{} { return &discordgo.MessageCreate{} },
	event.MessageUpdate:            func() interface{} { return &discordgo.MessageUpdate{} },
	event.MessageDelete:            func() interface{} { return &discordgo.MessageDelete{} },
	event.MessageDeleteBulk:        func() interface{} { return &discordgo.MessageDeleteBulk{} },
	event.MessageReactionAdd:       func() interface{} { return &discordgo.MessageReactionAdd{} },
	event.MessageReactionRemove:    func() interface{} { return &discordgo.MessageReactionRemove{} },
	event.MessageReactionRemoveAll: func() interface{} { return &discordgo.MessageReactionRemoveAll{} },

	event.PresenceUpdate:    func() interface{} { return &discordgo.PresenceUpdate{} },
	event.TypingStart:       func() interface{} { return &discordgo.TypingStart{} },
	event.UserUpdate:        func() interface{} { return &discordgo.UserUpdate{} },
	event.VoiceStateUpdate:  func() interface{} { return &discordgo.VoiceStateUpdate{} },
	event.VoiceServerUpdate: func() interface{} { return &discordgo.VoiceServerUpdate{} },
	event.WebhooksUpdate:    func() interface{} { return &discordgo.WebhooksUpdate{} },
}

// decodeEvent unmarshals the d field of a dispatch into the model of the event. Events
// without a model are returned as is.
func decodeEvent(evt event.Type, data RawMessage) (interface{}, error) {
	model, ok := models[evt]
	if !ok {
		return data, nil
	}

	value := model()
	if err := encoding.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("unable to decode %s event. %w", evt, err)
	}
	return value, nil
}

// dispatchHandler handles op 0: session bookkeeping, cache updates and event emission.
type dispatchHandler struct {
	dispatcher *Dispatcher
}

func (h *dispatchHandler) Handle(frame *Payload) error {
	client := h.dispatcher.client
	if frame.EventName == "" {
		return errors.New("dispatch is missing the event name")
	}

	value, err := decodeEvent(frame.EventName, frame.Data)
	if err != nil {
		return err
	}

	switch frame.EventName {
	case event.Ready:
		ready := value.(*Ready)
		if ready.SessionID == "" {
			return errors.New("failed to extract session id from ready event")
		}
		client.setSession(ready.SessionID, ready.ResumeGatewayURL)
		client.markReady()
	case event.Resumed:
		client.markReady()
	}

	if err = client.cache.update(frame.EventName, value); err != nil {
		// the event is still delivered, listeners may not depend on the cache
		client.logger.WithError(err).WithField("event", frame.EventName).Warn("cache update failed")
	}

	if client.allowEvent(frame.EventName) {
		client.emitter.emit(frame.EventName, value)
	}
	return nil
}
