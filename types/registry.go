package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// NewRegistry wires every dispatch this package defines. Creates are plain
// publishes: entities enter the cache only when somebody observes them.
// Updates refresh the cache entry for their target before publishing, and
// deletes evict it.
func NewRegistry() *gateway.Registry {
	r := gateway.NewRegistry()

	gateway.RegisterEvent[Ready](r)
	gateway.RegisterEvent[ChannelCreate](r)
	gateway.RegisterEvent[GuildCreate](r)
	gateway.RegisterEvent[RoleCreate](r)
	gateway.RegisterEvent[MessageCreate](r)
	gateway.RegisterEvent[TypingStart](r)
	gateway.RegisterEvent[PresenceUpdate](r)

	gateway.RegisterUpdate(r, func(e ChannelUpdate) Channel { return e.Channel })
	gateway.RegisterUpdate(r, func(e GuildUpdate) Guild { return e.Guild })
	gateway.RegisterUpdate(r, func(e RoleUpdate) Role {
		role := e.Role
		if role.GuildID.IsZero() {
			role.GuildID = e.GuildID
		}
		return role
	})
	gateway.RegisterUpdate(r, func(e UserUpdate) User { return e.User })

	gateway.RegisterDelete(r, func(e ChannelDelete) ids.EntityID { return e.Channel.ID })
	gateway.RegisterDelete(r, func(e GuildDelete) ids.EntityID { return e.UnavailableGuild.ID })
	gateway.RegisterDelete(r, func(e RoleDelete) ids.EntityID { return e.RoleID })

	return r
}
