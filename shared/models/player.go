// shared/models/player.go
package models

import (
	"time"
)

// TeamBalance is a player's running account with a single team.
type TeamBalance struct {
	ID         string  `bson:"id" json:"id"`                 // Team ID, not referentially enforced
	AmountDue  float64 `bson:"amount_due" json:"amountDue"`   // Amount that still needs to be paid
	TotalMulta float64 `bson:"total_multa" json:"totalMulta"` // Sum of every multa ever added for this team
}

// Player is a club member who can owe multa to one or more teams.
// TeamIDs mirrors Teams[*].ID in the same order so "players of team X" can be
// answered with a single array-membership query.
type Player struct {
	ID        string        `bson:"_id" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Teams     []TeamBalance `bson:"teams" json:"teams"`
	TeamIDs   []string      `bson:"team_ids" json:"teamIds"`
	CreatedAt *time.Time    `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time    `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate balances without aliasing.
func (p Player) Clone() Player {
	c := p
	c.Teams = append([]TeamBalance(nil), p.Teams...)
	c.TeamIDs = append([]string(nil), p.TeamIDs...)
	return c
}
