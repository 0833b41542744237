package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// Channel is a guild channel or a DM. Composite entity: recipients are
// entities in their own right and get canonicalized on observe.
type Channel struct {
	ID            ids.EntityID             `json:"id"`
	Type          int                      `json:"type"`
	GuildID       *ids.EntityID            `json:"guild_id,omitempty"`
	Name          *string                  `json:"name"`
	Topic         *string                  `json:"topic"`
	Position      int                      `json:"position"`
	NSFW          bool                     `json:"nsfw"`
	LastMessageID *ids.EntityID            `json:"last_message_id"`
	Recipients    []*gateway.Shared[User]  `json:"recipients,omitempty"`
}

func (c Channel) EntityID() ids.EntityID { return c.ID }

func (Channel) Kind() string { return "channel" }

// WatchFields re-points recipients at their canonical cached handles.
func (c Channel) WatchFields(h *gateway.Handle) Channel {
	c.Recipients = gateway.ObserveList(h, c.Recipients)
	return c
}
