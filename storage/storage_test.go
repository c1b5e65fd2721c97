package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOwner struct {
	handle Handle
}

func (o *testOwner) StorageHandle() Handle {
	return o.handle
}

func newOwner(registry *Registry) *testOwner {
	owner := &testOwner{handle: NewHandle()}
	registry.Register(owner)
	return owner
}

type guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newGuildStorage(t *testing.T) (*Storage[guild], *Registry, *testOwner) {
	t.Helper()
	registry := NewRegistry()
	owner := newOwner(registry)
	config := Config{Kind: "guilds", Capacity: 4, Args: map[string]string{"shard": "0"}}
	return New[guild](registry, owner.StorageHandle(), config), registry, owner
}

func TestKey(t *testing.T) {
	type snowflake string
	type level int

	valid := []struct {
		in    interface{}
		wants string
	}{
		{42, "42"},
		{"42", "42"},
		{int64(7), "7"},
		{uint8(3), "3"},
		{1.5, "1.5"},
		{true, "1"},
		{false, ""},
		{snowflake("123456"), "123456"},
		{level(2), "2"},
	}
	for _, tc := range valid {
		got, err := Key(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.wants, got, "key %v", tc.in)
	}

	invalid := []interface{}{
		[]int{1, 2},
		[2]int{1, 2},
		map[string]int{"a": 1},
		guild{},
		&guild{},
		func() {},
	}
	for _, in := range invalid {
		_, err := Key(in)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %T", in)
	}
}

func TestStorage_KeyCoercion(t *testing.T) {
	s, _, _ := newGuildStorage(t)

	require.NoError(t, s.Set(42, guild{ID: "42", Name: "first"}))
	require.NoError(t, s.Set("42", guild{ID: "42", Name: "second"}))

	assert.Equal(t, 1, s.Len())
	got, ok, err := s.Get(42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)

	err = s.Set([]int{1, 2}, guild{})
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = s.Has(map[string]string{})
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, _, err = s.Get([]string{"42"})
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.Delete(&guild{}), ErrInvalidKey)
}

func TestStorage_Delete(t *testing.T) {
	s, _, _ := newGuildStorage(t)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.Set(id, guild{ID: id}))
	}

	require.NoError(t, s.Delete(2))
	require.NoError(t, s.Delete("missing"))

	assert.Equal(t, []string{"1", "3"}, s.Keys())
	has, err := s.Has("2")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStorage_Update(t *testing.T) {
	s, _, _ := newGuildStorage(t)

	err := s.Update("1", func(current guild, exists bool) guild {
		assert.False(t, exists)
		return guild{ID: "1", Name: "created"}
	})
	require.NoError(t, err)

	err = s.Update("1", func(current guild, exists bool) guild {
		assert.True(t, exists)
		current.Name = "updated"
		return current
	})
	require.NoError(t, err)

	got, _, _ := s.Get("1")
	assert.Equal(t, "updated", got.Name)
}

func TestStorage_DerivedKeepConfig(t *testing.T) {
	s, _, owner := newGuildStorage(t)
	require.NoError(t, s.Set("b", guild{ID: "b", Name: "beta"}))
	require.NoError(t, s.Set("a", guild{ID: "a", Name: "alpha"}))
	require.NoError(t, s.Set("c", guild{ID: "c", Name: "gamma"}))

	derived := map[string]*Storage[guild]{
		"copy": s.Copy(),
		"filter": s.Filter(func(key string, g guild) bool {
			return key != "c"
		}),
		"sort": s.Sort(func(a, b guild) bool {
			return a.Name < b.Name
		}),
		"sort-keys": s.SortKeys(true),
	}

	for name, d := range derived {
		t.Run(name, func(t *testing.T) {
			assert.NotSame(t, s, d)
			assert.Equal(t, s.Config(), d.Config())
			assert.Equal(t, owner.StorageHandle(), d.OwnerHandle())
		})
	}

	assert.Equal(t, []string{"b", "a", "c"}, derived["copy"].Keys())
	assert.Equal(t, []string{"b", "a"}, derived["filter"].Keys())
	assert.Equal(t, []string{"a", "b", "c"}, derived["sort"].Keys())
	assert.Equal(t, []string{"c", "b", "a"}, derived["sort-keys"].Keys())

	// derived storages do not share state
	require.NoError(t, derived["copy"].Set("d", guild{ID: "d"}))
	assert.Equal(t, 3, s.Len())

	// nor do their configs
	cfg := derived["copy"].Config()
	cfg.Args["shard"] = "9"
	assert.Equal(t, "0", s.Config().Args["shard"])
}

func TestStorage_Owner(t *testing.T) {
	s, registry, owner := newGuildStorage(t)

	resolved, err := s.Owner()
	require.NoError(t, err)
	assert.Same(t, owner, resolved)

	registry.Unregister(owner.StorageHandle())
	_, err = s.Owner()
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestStorage_Snapshot(t *testing.T) {
	s, registry, original := newGuildStorage(t)
	require.NoError(t, s.Set("2", guild{ID: "2", Name: "two"}))
	require.NoError(t, s.Set("1", guild{ID: "1", Name: "one"}))

	data, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), string(original.StorageHandle())), "snapshot must not contain the owner")

	t.Run("restore", func(t *testing.T) {
		designated := newOwner(registry)

		restored, err := Restore[guild](data, registry, designated.StorageHandle())
		require.NoError(t, err)

		assert.Equal(t, s.Entries(), restored.Entries())
		assert.Equal(t, s.Config(), restored.Config())

		owner, err := restored.Owner()
		require.NoError(t, err)
		assert.Same(t, designated, owner)
		assert.NotSame(t, original, owner)
	})

	t.Run("unresolvable owner", func(t *testing.T) {
		_, err := Restore[guild](data, registry, NewHandle())
		assert.ErrorIs(t, err, ErrUnresolvableOwner)

		_, err = Restore[guild](data, nil, original.StorageHandle())
		assert.ErrorIs(t, err, ErrUnresolvableOwner)
	})

	t.Run("corrupt data", func(t *testing.T) {
		_, err := Restore[guild]([]byte{0xff, 0x00}, registry, original.StorageHandle())
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnresolvableOwner)
	})
}

func TestStorage_SnapshotModels(t *testing.T) {
	registry := NewRegistry()
	owner := newOwner(registry)

	joinedAt := time.Date(2021, 3, 4, 5, 6, 7, 123456789, time.FixedZone("CET", 3600))
	members := New[*discordgo.Member](registry, owner.StorageHandle(), Config{Kind: "members"})
	require.NoError(t, members.Set(7, &discordgo.Member{
		GuildID:  "1",
		JoinedAt: joinedAt,
		Nick:     "nick",
		Roles:    []string{"3", "4"},
		User:     &discordgo.User{ID: "7", Username: "member"},
	}))

	data, err := members.MarshalBinary()
	require.NoError(t, err)
	restored, err := Restore[*discordgo.Member](data, registry, owner.StorageHandle())
	require.NoError(t, err)

	member, ok, err := restored.Get("7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, joinedAt.Equal(member.JoinedAt), "restored %s", member.JoinedAt)
	assert.Equal(t, joinedAt.Nanosecond(), member.JoinedAt.Nanosecond())
	_, offset := member.JoinedAt.Zone()
	assert.Equal(t, 3600, offset)
	assert.Equal(t, "nick", member.Nick)
	assert.Equal(t, []string{"3", "4"}, member.Roles)
	assert.Equal(t, "member", member.User.Username)

	guilds := New[*discordgo.Guild](registry, owner.StorageHandle(), Config{Kind: "guilds"})
	require.NoError(t, guilds.Set("1", &discordgo.Guild{
		ID:       "1",
		Name:     "guild",
		JoinedAt: joinedAt,
		Channels: []*discordgo.Channel{{ID: "5", Name: "general", GuildID: "1"}},
	}))

	data, err = guilds.MarshalBinary()
	require.NoError(t, err)
	restoredGuilds, err := Restore[*discordgo.Guild](data, registry, owner.StorageHandle())
	require.NoError(t, err)

	cached, ok, err := restoredGuilds.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "guild", cached.Name)
	assert.True(t, joinedAt.Equal(cached.JoinedAt))
	require.Len(t, cached.Channels, 1)
	assert.Equal(t, "general", cached.Channels[0].Name)
}
