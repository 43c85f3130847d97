// shared/models/roster.go
package models

import "time"

// RosterEntry is one player's balance as seen from a single team.
type RosterEntry struct {
	PlayerID   string  `json:"playerId"`
	Name       string  `json:"name"`
	AmountDue  float64 `json:"amountDue"`
	TotalMulta float64 `json:"totalMulta"`
}

// RosterSnapshot is the complete state of a team view at one point in time.
// A nil Team means the team is gone or the caller lost access to it.
type RosterSnapshot struct {
	Team    *Team         `json:"team"`
	Players []RosterEntry `json:"players"`
	Version uint64        `json:"version"`
	At      time.Time     `json:"at"`
}

// TeamsSnapshot is the complete list of teams a user administers.
type TeamsSnapshot struct {
	Teams   []Team    `json:"teams"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
}
