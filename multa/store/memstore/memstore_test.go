package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ftotnem/multa-tracker/multa/store"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

func seedPlayer(t *testing.T, s *Store, id, name string, teamIDs ...string) {
	t.Helper()
	p := &models.Player{ID: id, Name: name}
	for _, tid := range teamIDs {
		ledger.AddMembership(p, tid)
	}
	require.NoError(t, s.CreatePlayer(context.Background(), p))
}

func TestAdjustmentsFollowLedgerRule(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPlayer(t, s, "hans", "Hans", "t1", "t2")

	p, err := s.ApplyAdjustment(ctx, "hans", "t1", 10)
	require.NoError(t, err)
	p, err = s.ApplyAdjustment(ctx, "hans", "t1", -4)
	require.NoError(t, err)

	assert.Equal(t, []models.TeamBalance{
		{ID: "t1", AmountDue: 6, TotalMulta: 10},
		{ID: "t2"},
	}, p.Teams)
}

func TestAdjustmentWithoutMembership(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPlayer(t, s, "hans", "Hans", "t1")

	before, err := s.GetPlayer(ctx, "hans")
	require.NoError(t, err)
	after, err := s.ApplyAdjustment(ctx, "hans", "t9", 5)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = s.ApplyAdjustment(ctx, "nobody", "t1", 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentAdjustments(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPlayer(t, s, "hans", "Hans", "t1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = s.ApplyAdjustment(ctx, "hans", "t1", 2) }()
		go func() { defer wg.Done(); _, _ = s.ApplyAdjustment(ctx, "hans", "t1", -1) }()
	}
	wg.Wait()

	p, err := s.GetPlayer(ctx, "hans")
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.Teams[0].AmountDue)
	assert.Equal(t, 100.0, p.Teams[0].TotalMulta)
}

func TestReturnedValuesDoNotAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPlayer(t, s, "hans", "Hans", "t1")

	p, err := s.GetPlayer(ctx, "hans")
	require.NoError(t, err)
	p.Teams[0].AmountDue = 999

	again, err := s.GetPlayer(ctx, "hans")
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.Teams[0].AmountDue)
}

func TestMembershipAndOrphanCleanup(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedPlayer(t, s, "a", "Anna", "t1")
	seedPlayer(t, s, "b", "Bert", "t2")

	_, added, err := s.AddMembership(ctx, "a", "t2")
	require.NoError(t, err)
	assert.True(t, added)
	_, added, err = s.AddMembership(ctx, "a", "t2")
	require.NoError(t, err)
	assert.False(t, added)

	players, err := s.ListPlayersByTeam(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Anna", players[0].Name)

	refs, err := s.ReferencedTeamIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, refs)

	n, err := s.RemoveTeamMemberships(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	a, err := s.GetPlayer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, a.TeamIDs)
	assert.True(t, ledger.TeamIDsConsistent(*a))
}

func TestTeamsAndAdmins(t *testing.T) {
	s := New()
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "late", Name: "B", Admins: []string{"u1"}, CreatedAt: &t2}))
	require.NoError(t, s.CreateTeam(ctx, &models.Team{ID: "early", Name: "A", Admins: []string{"u1"}, CreatedAt: &t1}))
	assert.ErrorIs(t, s.CreateTeam(ctx, &models.Team{ID: "early"}), store.ErrDuplicate)

	list, err := s.ListTeamsByAdmin(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)

	team, added, err := s.AddAdmin(ctx, "early", "u2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"u1", "u2"}, team.Admins)
	_, added, err = s.AddAdmin(ctx, "early", "u2")
	require.NoError(t, err)
	assert.False(t, added)

	ids, err := s.ExistingTeamIDs(ctx, []string{"early", "gone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, ids)

	_, err = s.DeleteTeam(ctx, "early")
	require.NoError(t, err)
	_, err = s.GetTeam(ctx, "early")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersAndRevocation(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@b.c"}))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "a@b.c"}), store.ErrDuplicate)

	u, err := s.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "jti-old", time.Now().Add(-time.Hour)))
	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = s.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GetTeam(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
