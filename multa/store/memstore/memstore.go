// Package memstore keeps teams, players, users and revoked tokens in process
// memory. It backs single-instance runs (STORE_BACKEND=memory) and tests, and
// mirrors the semantics of the MongoDB stores, including the atomicity of
// balance adjustments.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ftotnem/multa-tracker/multa/store"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// Store holds every collection behind one lock.
type Store struct {
	mu      sync.RWMutex
	teams   map[string]models.Team
	players map[string]models.Player
	users   map[string]models.User
	revoked map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{
		teams:   make(map[string]models.Team),
		players: make(map[string]models.Player),
		users:   make(map[string]models.User),
		revoked: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func teamNotFound(id string) error   { return fmt.Errorf("%w: team %s", store.ErrNotFound, id) }
func playerNotFound(id string) error { return fmt.Errorf("%w: player %s", store.ErrNotFound, id) }

// ----- teams -----

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; ok {
		return fmt.Errorf("%w: team %s", store.ErrDuplicate, team.ID)
	}
	s.teams[team.ID] = team.Clone()
	return nil
}

func (s *Store) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, teamNotFound(teamID)
	}
	c := t.Clone()
	return &c, nil
}

func (s *Store) ListTeamsByAdmin(ctx context.Context, uid string) ([]models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Team{}
	for _, t := range s.teams {
		if slices.Contains(t.Admins, uid) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := timeOf(out[i].CreatedAt), timeOf(out[j].CreatedAt)
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateTeam(ctx context.Context, teamID, name, color string) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, teamNotFound(teamID)
	}
	now := s.now()
	t.Name, t.Color, t.UpdatedAt = name, color, &now
	s.teams[teamID] = t
	c := t.Clone()
	return &c, nil
}

func (s *Store) DeleteTeam(ctx context.Context, teamID string) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, teamNotFound(teamID)
	}
	delete(s.teams, teamID)
	return &t, nil
}

func (s *Store) AddAdmin(ctx context.Context, teamID, uid string) (*models.Team, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, false, teamNotFound(teamID)
	}
	added := false
	if !slices.Contains(t.Admins, uid) {
		t = t.Clone()
		t.Admins = append(t.Admins, uid)
		s.teams[teamID] = t
		added = true
	}
	c := t.Clone()
	return &c, added, nil
}

func (s *Store) ExistingTeamIDs(ctx context.Context, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []string
	for _, id := range ids {
		if _, ok := s.teams[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

// ----- players -----

func (s *Store) CreatePlayer(ctx context.Context, player *models.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; ok {
		return fmt.Errorf("%w: player %s", store.ErrDuplicate, player.ID)
	}
	c := player.Clone()
	if c.Teams == nil {
		c.Teams = []models.TeamBalance{}
	}
	if c.TeamIDs == nil {
		c.TeamIDs = []string{}
	}
	s.players[player.ID] = c
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, playerNotFound(playerID)
	}
	c := p.Clone()
	return &c, nil
}

func (s *Store) ListPlayersByTeam(ctx context.Context, teamID string) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Player{}
	for _, p := range s.players {
		if slices.Contains(p.TeamIDs, teamID) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := strings.Compare(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RenamePlayer(ctx context.Context, playerID, name string) (*models.Player, error) {
	return s.mutatePlayer(ctx, playerID, func(p *models.Player) bool {
		now := s.now()
		p.Name, p.UpdatedAt = name, &now
		return true
	})
}

func (s *Store) DeletePlayer(ctx context.Context, playerID string) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, playerNotFound(playerID)
	}
	delete(s.players, playerID)
	return &p, nil
}

func (s *Store) ApplyAdjustment(ctx context.Context, playerID, teamID string, delta float64) (*models.Player, error) {
	return s.mutatePlayer(ctx, playerID, func(p *models.Player) bool {
		return ledger.ApplyAdjustment(p, teamID, delta)
	})
}

func (s *Store) AddMembership(ctx context.Context, playerID, teamID string) (*models.Player, bool, error) {
	added := false
	p, err := s.mutatePlayer(ctx, playerID, func(p *models.Player) bool {
		added = ledger.AddMembership(p, teamID)
		if added {
			now := s.now()
			p.UpdatedAt = &now
		}
		return added
	})
	return p, added, err
}

func (s *Store) ReferencedTeamIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, p := range s.players {
		for _, id := range p.TeamIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *Store) RemoveTeamMemberships(ctx context.Context, teamID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.players {
		c := p.Clone()
		if ledger.RemoveMembership(&c, teamID) {
			now := s.now()
			c.UpdatedAt = &now
			s.players[id] = c
			n++
		}
	}
	return n, nil
}

// mutatePlayer applies fn to a copy of the player and stores it when fn reports a change.
func (s *Store) mutatePlayer(ctx context.Context, playerID string, fn func(*models.Player) bool) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, playerNotFound(playerID)
	}
	c := p.Clone()
	if fn(&c) {
		s.players[playerID] = c
	} else {
		c = p.Clone()
	}
	return &c, nil
}

// ----- users -----

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s", store.ErrDuplicate, user.ID)
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: user %s", store.ErrDuplicate, user.Email)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, uid)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, email)
}

// ----- revoked tokens -----

func (s *Store) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if until.After(now) {
		s.revoked[tokenID] = until
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	until, ok := s.revoked[tokenID]
	return ok && until.After(s.now()), nil
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
