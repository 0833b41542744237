package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// Role is a guild permission role. Leaf entity.
type Role struct {
	ID          ids.EntityID `json:"id"`
	GuildID     ids.EntityID `json:"guild_id,omitempty"`
	Name        string       `json:"name"`
	Color       uint32       `json:"color"`
	Hoist       bool         `json:"hoist"`
	Position    int          `json:"position"`
	Permissions string       `json:"permissions"`
	Managed     bool         `json:"managed"`
	Mentionable bool         `json:"mentionable"`
}

func (r Role) EntityID() ids.EntityID { return r.ID }

func (Role) Kind() string { return "role" }

func (r Role) WatchFields(_ *gateway.Handle) Role { return r }
