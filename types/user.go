package types

import (
	"PClient/gateway"
	ids "PClient/tools/ids"
)

// User is a platform account. Leaf entity: no observable fields of its own.
type User struct {
	ID            ids.EntityID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator"`
	Avatar        *string      `json:"avatar"`
	Bot           bool         `json:"bot"`
	PublicFlags   uint64       `json:"public_flags"`
}

func (u User) EntityID() ids.EntityID { return u.ID }

func (User) Kind() string { return "user" }

func (u User) WatchFields(_ *gateway.Handle) User { return u }
