package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// Guild is a server. Composite entity: channels and roles are canonicalized
// recursively on observe, so a guild handle shares its children with every
// other holder.
type Guild struct {
	ID          ids.EntityID               `json:"id"`
	Name        string                     `json:"name"`
	Icon        *string                    `json:"icon"`
	Description *string                    `json:"description"`
	OwnerID     ids.EntityID               `json:"owner_id"`
	MemberCount int                        `json:"member_count,omitempty"`
	Unavailable bool                       `json:"unavailable,omitempty"`
	Channels    []*gateway.Shared[Channel] `json:"channels,omitempty"`
	Roles       []*gateway.Shared[Role]    `json:"roles,omitempty"`
}

func (g Guild) EntityID() ids.EntityID { return g.ID }

func (Guild) Kind() string { return "guild" }

func (g Guild) WatchFields(h *gateway.Handle) Guild {
	g.Channels = gateway.ObserveList(h, g.Channels)
	g.Roles = gateway.ObserveList(h, g.Roles)
	return g
}
