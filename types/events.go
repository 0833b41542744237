package types

import (
	ids "PClient/tools/ids"
)

// Dispatch events. Each carries its wire name through EventType, which is
// also its bus topic.

// UnavailableGuild is the stub shape READY and GUILD_DELETE use for guilds
// whose full payload has not arrived (or just left).
type UnavailableGuild struct {
	ID          ids.EntityID `json:"id"`
	Unavailable bool         `json:"unavailable"`
}

// Ready opens every fresh session.
type Ready struct {
	Version          int                `json:"v"`
	User             User               `json:"user"`
	Guilds           []UnavailableGuild `json:"guilds"`
	SessionID        string             `json:"session_id"`
	ResumeGatewayURL string             `json:"resume_gateway_url"`
}

func (Ready) EventType() string { return "READY" }

type ChannelCreate struct {
	Channel
}

func (ChannelCreate) EventType() string { return "CHANNEL_CREATE" }

type ChannelUpdate struct {
	Channel
}

func (ChannelUpdate) EventType() string { return "CHANNEL_UPDATE" }

// ChannelDelete carries the last known shape of the deleted channel.
type ChannelDelete struct {
	Channel
}

func (ChannelDelete) EventType() string { return "CHANNEL_DELETE" }

type GuildCreate struct {
	Guild
}

func (GuildCreate) EventType() string { return "GUILD_CREATE" }

type GuildUpdate struct {
	Guild
}

func (GuildUpdate) EventType() string { return "GUILD_UPDATE" }

type GuildDelete struct {
	UnavailableGuild
}

func (GuildDelete) EventType() string { return "GUILD_DELETE" }

type RoleCreate struct {
	GuildID ids.EntityID `json:"guild_id"`
	Role    Role         `json:"role"`
}

func (RoleCreate) EventType() string { return "GUILD_ROLE_CREATE" }

type RoleUpdate struct {
	GuildID ids.EntityID `json:"guild_id"`
	Role    Role         `json:"role"`
}

func (RoleUpdate) EventType() string { return "GUILD_ROLE_UPDATE" }

type RoleDelete struct {
	GuildID ids.EntityID `json:"guild_id"`
	RoleID  ids.EntityID `json:"role_id"`
}

func (RoleDelete) EventType() string { return "GUILD_ROLE_DELETE" }

type MessageCreate struct {
	Message
}

func (MessageCreate) EventType() string { return "MESSAGE_CREATE" }

// UserUpdate is update-shaped: it refreshes the cached user it targets.
type UserUpdate struct {
	User
}

func (UserUpdate) EventType() string { return "USER_UPDATE" }

type TypingStart struct {
	ChannelID ids.EntityID  `json:"channel_id"`
	GuildID   *ids.EntityID `json:"guild_id,omitempty"`
	UserID    ids.EntityID  `json:"user_id"`
	Timestamp int64         `json:"timestamp"`
}

func (TypingStart) EventType() string { return "TYPING_START" }

// PresenceUpdate is informational; presence is not cached.
type PresenceUpdate struct {
	User    User          `json:"user"`
	GuildID *ids.EntityID `json:"guild_id,omitempty"`
	Status  string        `json:"status"`
}

func (PresenceUpdate) EventType() string { return "PRESENCE_UPDATE" }
