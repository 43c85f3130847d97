// shared/feed/event.go
package feed

import (
	"slices"
	"time"
)

// Collections an event can refer to.
const (
	CollectionTeams   = "teams"
	CollectionPlayers = "players"
)

// Operations an event can carry.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Event announces a committed change to a team or player document. It carries
// just enough for a listener to decide whether its view is affected; listeners
// re-read the store for the actual data.
type Event struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"documentId"`
	Op         string    `json:"op"`
	TeamIDs    []string  `json:"teamIds,omitempty"` // player events: memberships before and after the change
	Admins     []string  `json:"admins,omitempty"`  // team events: admins before and after the change
	At         time.Time `json:"at"`
}

// TeamEvent builds an event for a team document.
func TeamEvent(op, teamID string, admins ...[]string) Event {
	return Event{
		Collection: CollectionTeams,
		DocumentID: teamID,
		Op:         op,
		Admins:     union(admins...),
		At:         time.Now().UTC(),
	}
}

// PlayerEvent builds an event for a player document.
func PlayerEvent(op, playerID string, teamIDs ...[]string) Event {
	return Event{
		Collection: CollectionPlayers,
		DocumentID: playerID,
		Op:         op,
		TeamIDs:    union(teamIDs...),
		At:         time.Now().UTC(),
	}
}

// TouchesTeam reports whether the event may change what a roster view of teamID shows.
func (e Event) TouchesTeam(teamID string) bool {
	switch e.Collection {
	case CollectionTeams:
		return e.DocumentID == teamID
	case CollectionPlayers:
		return slices.Contains(e.TeamIDs, teamID)
	}
	return false
}

// TouchesAdmin reports whether the event may change the team list of uid.
func (e Event) TouchesAdmin(uid string) bool {
	return e.Collection == CollectionTeams && slices.Contains(e.Admins, uid)
}

func union(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, v := range l {
			if v != "" && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}
