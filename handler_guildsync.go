package gatewayclient

import (
	"errors"
	"fmt"

	"github.com/discordpkg/gatewayclient/encoding"
	"github.com/discordpkg/gatewayclient/event"
)

// guildSyncHandler handles the legacy op 12. Members are merged into the cache; for
// large guilds the full member list is fetched over REST in the background.
type guildSyncHandler struct {
	dispatcher *Dispatcher
}

func (h *guildSyncHandler) Handle(frame *Payload) error {
	client := h.dispatcher.client

	sync := &GuildSync{}
	if err := encoding.Unmarshal(frame.Data, sync); err != nil {
		return fmt.Errorf("unable to decode guild sync payload. %w", err)
	}
	if sync.ID == "" {
		return errors.New("guild sync is missing the guild id")
	}

	if err := client.cache.MergeMembers(sync.ID, sync.Members); err != nil {
		return fmt.Errorf("unable to cache synced members. %w", err)
	}
	for _, presence := range sync.Presences {
		if presence == nil || presence.User == nil || presence.User.ID == "" {
			continue
		}
		// presences carry partial users, never replace a complete one
		if ok, _ := client.cache.Users.Has(presence.User.ID); ok {
			continue
		}
		if err := client.cache.Users.Set(presence.User.ID, presence.User); err != nil {
			return fmt.Errorf("unable to cache synced user. %w", err)
		}
	}

	if sync.Large && client.rest != nil {
		go func() {
			if _, err := client.FetchGuildMembers(client.lifetime, sync.ID); err != nil {
				client.logger.WithError(err).WithField("guild", sync.ID).Error("unable to fetch members of large guild")
			}
		}()
	}

	if client.allowEvent(event.GuildSync) {
		client.emitter.emit(event.GuildSync, sync)
	}
	return nil
}
