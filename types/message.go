package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// Message is one chat message. Leaf entity; the author rides along as a plain
// value, observe it explicitly if you want the canonical handle.
type Message struct {
	ID              ids.EntityID  `json:"id"`
	ChannelID       ids.EntityID  `json:"channel_id"`
	GuildID         *ids.EntityID `json:"guild_id,omitempty"`
	Author          *User         `json:"author,omitempty"`
	Content         string        `json:"content"`
	Timestamp       string        `json:"timestamp"`
	EditedTimestamp *string       `json:"edited_timestamp"`
	TTS             bool          `json:"tts"`
	MentionEveryone bool          `json:"mention_everyone"`
	Pinned          bool          `json:"pinned"`
}

func (m Message) EntityID() ids.EntityID { return m.ID }

func (Message) Kind() string { return "message" }

func (m Message) WatchFields(_ *gateway.Handle) Message { return m }
