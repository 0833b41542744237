package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"PClient/gateway"
	ids "PClient/tools/ids"
)

func TestKindsAreUniquePerType(t *testing.T) {
	kinds := []string{
		User{}.Kind(), Role{}.Kind(), Message{}.Kind(), Channel{}.Kind(), Guild{}.Kind(),
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		require.NotEmpty(t, k)
		require.False(t, seen[k], "duplicate kind %q", k)
		seen[k] = true
	}
}

func TestGuildUnmarshalBuildsSharedChildren(t *testing.T) {
	raw := `{
		"id": "100",
		"name": "testers",
		"owner_id": "1",
		"channels": [{"id": "200", "name": "general", "type": 0}],
		"roles": [{"id": "300", "name": "admin", "position": 2}]
	}`
	var g Guild
	require.NoError(t, json.Unmarshal([]byte(raw), &g))
	require.Equal(t, ids.EntityID(100), g.ID)
	require.Len(t, g.Channels, 1)
	require.Len(t, g.Roles, 1)

	ch := g.Channels[0].Load()
	require.Equal(t, ids.EntityID(200), ch.ID)
	require.NotNil(t, ch.Name)
	require.Equal(t, "general", *ch.Name)
	require.Equal(t, 2, g.Roles[0].Load().Position)
}

func TestChannelMarshalFlattensShared(t *testing.T) {
	c := Channel{
		ID:   20,
		Type: 1,
		Recipients: []*gateway.Shared[User]{
			gateway.NewShared(User{ID: 7, Username: "grace"}),
		},
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.Contains(t, string(data), `"recipients":[{`)
	require.Contains(t, string(data), `"username":"grace"`)
	require.NotContains(t, string(data), "Shared")
}

func TestEventTypeNames(t *testing.T) {
	require.Equal(t, "READY", Ready{}.EventType())
	require.Equal(t, "CHANNEL_UPDATE", ChannelUpdate{}.EventType())
	require.Equal(t, "GUILD_DELETE", GuildDelete{}.EventType())
	require.Equal(t, "GUILD_ROLE_UPDATE", RoleUpdate{}.EventType())
	require.Equal(t, "MESSAGE_CREATE", MessageCreate{}.EventType())
	require.Equal(t, "USER_UPDATE", UserUpdate{}.EventType())
}

func TestNewRegistryCoversEveryEvent(t *testing.T) {
	// duplicate registrations panic, so building the registry is itself the
	// assertion that every event name is wired exactly once
	require.NotPanics(t, func() { NewRegistry() })
}

func TestChannelCreateDecodesInline(t *testing.T) {
	raw := `{"id": "201", "name": "random", "type": 0, "guild_id": "100"}`
	var ev ChannelCreate
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	require.Equal(t, ids.EntityID(201), ev.Channel.ID)
	require.NotNil(t, ev.GuildID)
	require.Equal(t, ids.EntityID(100), *ev.GuildID)
}
