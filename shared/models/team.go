// shared/models/team.go
package models

import (
	"slices"
	"time"
)

// Team is a club squad. Only users listed in Admins may see or manage it.
type Team struct {
	ID        string     `bson:"_id" json:"id"`
	Name      string     `bson:"name" json:"name"`
	Color     string     `bson:"color" json:"color"`
	Admins    []string   `bson:"admins" json:"admins"`
	CreatedAt *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// IsAdmin reports whether uid may manage the team.
func (t Team) IsAdmin(uid string) bool {
	return uid != "" && slices.Contains(t.Admins, uid)
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	c := t
	c.Admins = append([]string(nil), t.Admins...)
	return c
}
