package gatewayclient

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/discordpkg/gatewayclient/event"
	"github.com/discordpkg/gatewayclient/storage"
)

const (
	KindGuilds   = "guilds"
	KindChannels = "channels"
	KindUsers    = "users"
	KindMembers  = "members"
)

// Cache holds the entities received during a session. Every storage belongs to the
// client the cache was created for.
type Cache struct {
	Guilds   *storage.Storage[*discordgo.Guild]
	Channels *storage.Storage[*discordgo.Channel]
	Users    *storage.Storage[*discordgo.User]

	registry *storage.Registry
	owner    storage.Handle

	mu      sync.Mutex
	members map[string]*storage.Storage[*discordgo.Member]
}

func newCache(registry *storage.Registry, owner storage.Handle) *Cache {
	return &Cache{
		Guilds:   storage.New[*discordgo.Guild](registry, owner, storage.Config{Kind: KindGuilds}),
		Channels: storage.New[*discordgo.Channel](registry, owner, storage.Config{Kind: KindChannels}),
		Users:    storage.New[*discordgo.User](registry, owner, storage.Config{Kind: KindUsers}),
		registry: registry,
		owner:    owner,
		members:  make(map[string]*storage.Storage[*discordgo.Member]),
	}
}

// Members returns the member storage of a guild, keyed by user id.
func (c *Cache) Members(guildID string) *storage.Storage[*discordgo.Member] {
	c.mu.Lock()
	defer c.mu.Unlock()

	members, ok := c.members[guildID]
	if !ok {
		members = storage.New[*discordgo.Member](c.registry, c.owner, storage.Config{
			Kind: KindMembers,
			Args: map[string]string{"guild": guildID},
		})
		c.members[guildID] = members
	}
	return members
}

func (c *Cache) dropMembers(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, guildID)
}

// Clear empties every storage.
func (c *Cache) Clear() {
	c.Guilds.Clear()
	c.Channels.Clear()
	c.Users.Clear()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = make(map[string]*storage.Storage[*discordgo.Member])
}

// MergeMembers stores the members of a guild, and their users.
func (c *Cache) MergeMembers(guildID string, members []*discordgo.Member) error {
	cached := c.Members(guildID)
	for _, member := range members {
		if member == nil || member.User == nil {
			continue
		}
		member.GuildID = guildID
		if err := cached.Set(member.User.ID, member); err != nil {
			return err
		}
		if err := c.Users.Set(member.User.ID, member.User); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) setGuild(guild *discordgo.Guild) error {
	if guild == nil || guild.ID == "" {
		return nil
	}

	// partial updates must not wipe what an earlier create delivered
	err := c.Guilds.Update(guild.ID, func(current *discordgo.Guild, exists bool) *discordgo.Guild {
		if exists && guild.Channels == nil {
			guild.Channels = current.Channels
		}
		if exists && guild.Members == nil {
			guild.Members = current.Members
		}
		return guild
	})
	if err != nil {
		return err
	}

	for _, channel := range guild.Channels {
		channel.GuildID = guild.ID
		if err = c.Channels.Set(channel.ID, channel); err != nil {
			return err
		}
	}
	return c.MergeMembers(guild.ID, guild.Members)
}

func (c *Cache) deleteGuild(guild *discordgo.Guild) error {
	if guild == nil {
		return nil
	}
	if guild.Unavailable {
		// outage, the guild still exists
		return c.Guilds.Update(guild.ID, func(current *discordgo.Guild, exists bool) *discordgo.Guild {
			if !exists {
				return guild
			}
			current.Unavailable = true
			return current
		})
	}

	if err := c.Guilds.Delete(guild.ID); err != nil {
		return err
	}
	for _, channel := range c.Channels.Values() {
		if channel.GuildID == guild.ID {
			if err := c.Channels.Delete(channel.ID); err != nil {
				return err
			}
		}
	}
	c.dropMembers(guild.ID)
	return nil
}

// update materialises a decoded dispatch event into the cache. Events that are not
// cached are ignored.
func (c *Cache) update(evt event.Type, data interface{}) error {
	var err error
	switch v := data.(type) {
	case *Ready:
		if v.User != nil {
			err = c.Users.Set(v.User.ID, v.User)
		}
		for _, guild := range v.Guilds {
			if err == nil {
				err = c.setGuild(guild)
			}
		}
		for _, channel := range v.PrivateChannels {
			if err == nil {
				err = c.Channels.Set(channel.ID, channel)
			}
		}
	case *discordgo.GuildCreate:
		err = c.setGuild(v.Guild)
	case *discordgo.GuildUpdate:
		err = c.setGuild(v.Guild)
	case *discordgo.GuildDelete:
		err = c.deleteGuild(v.Guild)
	case *discordgo.ChannelCreate:
		if v.Channel != nil {
			err = c.Channels.Set(v.ID, v.Channel)
		}
	case *discordgo.ChannelUpdate:
		if v.Channel != nil {
			err = c.Channels.Set(v.ID, v.Channel)
		}
	case *discordgo.ChannelDelete:
		if v.Channel != nil {
			err = c.Channels.Delete(v.ID)
		}
	case *discordgo.GuildMemberAdd:
		if v.Member != nil {
			err = c.MergeMembers(v.GuildID, []*discordgo.Member{v.Member})
		}
	case *discordgo.GuildMemberUpdate:
		if v.Member != nil {
			err = c.MergeMembers(v.GuildID, []*discordgo.Member{v.Member})
		}
	case *discordgo.GuildMemberRemove:
		if v.Member != nil && v.User != nil {
			err = c.Members(v.GuildID).Delete(v.User.ID)
		}
	case *discordgo.GuildMembersChunk:
		err = c.MergeMembers(v.GuildID, v.Members)
	case *discordgo.UserUpdate:
		if v.User != nil {
			err = c.Users.Set(v.ID, v.User)
		}
	}

	if err != nil {
		return fmt.Errorf("unable to cache %s event. %w", evt, err)
	}
	return nil
}
