package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

type testDB struct {
	teams   *TeamStore
	players *PlayerStore
	users   *UserStore
	raw     *mongo.Database
}

// openTestDB connects to MULTA_TEST_MONGO_URI and hands out a throwaway database.
func openTestDB(t *testing.T) testDB {
	t.Helper()
	uri := os.Getenv("MULTA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MULTA_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("multa_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	require.NoError(t, EnsureIndexes(ctx, db.Collection("teams"), db.Collection("players"), db.Collection("users")))
	return testDB{
		teams:   NewTeamStore(db.Collection("teams")),
		players: NewPlayerStore(db.Collection("players")),
		users:   NewUserStore(db.Collection("users")),
		raw:     db,
	}
}

func newPlayer(name string, teamIDs ...string) *models.Player {
	p := &models.Player{ID: uuid.NewString(), Name: name}
	for _, id := range teamIDs {
		ledger.AddMembership(p, id)
	}
	return p
}

func TestHansScenario(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hans := newPlayer("Hans", "t1")
	require.NoError(t, db.players.CreatePlayer(ctx, hans))

	steps := []struct {
		delta     float64
		due, tota float64
	}{
		{10, 10, 10},
		{-10, 0, 10},
		{5, 5, 15},
	}
	for _, s := range steps {
		p, err := db.players.ApplyAdjustment(ctx, hans.ID, "t1", s.delta)
		require.NoError(t, err)
		b, ok := ledger.BalanceFor(*p, "t1")
		require.True(t, ok)
		assert.Equal(t, s.due, b.AmountDue)
		assert.Equal(t, s.tota, b.TotalMulta)
	}
}

func TestAdjustmentOnlyTouchesMatchingTeam(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := newPlayer("Eva", "t1", "t2")
	require.NoError(t, db.players.CreatePlayer(ctx, p))

	got, err := db.players.ApplyAdjustment(ctx, p.ID, "t2", 3)
	require.NoError(t, err)
	assert.Equal(t, []models.TeamBalance{{ID: "t1"}, {ID: "t2", AmountDue: 3, TotalMulta: 3}}, got.Teams)
}

func TestAdjustmentWithoutMembershipLeavesDocumentUnchanged(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := newPlayer("Uwe", "t1")
	require.NoError(t, db.players.CreatePlayer(ctx, p))

	var before bson.Raw
	require.NoError(t, db.raw.Collection("players").FindOne(ctx, bson.M{"_id": p.ID}).Decode(&before))

	_, err := db.players.ApplyAdjustment(ctx, p.ID, "t9", 7)
	require.NoError(t, err)

	var after bson.Raw
	require.NoError(t, db.raw.Collection("players").FindOne(ctx, bson.M{"_id": p.ID}).Decode(&after))
	assert.Equal(t, []byte(before), []byte(after))
}

func TestAdjustmentUnknownPlayer(t *testing.T) {
	db := openTestDB(t)
	_, err := db.players.ApplyAdjustment(context.Background(), "nobody", "t1", 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentAdjustmentsAreNotLost(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := newPlayer("Kurt", "t1")
	require.NoError(t, db.players.CreatePlayer(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.players.ApplyAdjustment(ctx, p.ID, "t1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := db.players.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Teams[0].AmountDue)
	assert.Equal(t, 20.0, got.Teams[0].TotalMulta)
}

func TestAddMembershipIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p := newPlayer("Lena", "t1")
	require.NoError(t, db.players.CreatePlayer(ctx, p))

	got, added, err := db.players.AddMembership(ctx, p.ID, "t2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"t1", "t2"}, got.TeamIDs)
	assert.True(t, ledger.TeamIDsConsistent(*got))

	got, added, err = db.players.AddMembership(ctx, p.ID, "t2")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"t1", "t2"}, got.TeamIDs)

	_, _, err = db.players.AddMembership(ctx, "nobody", "t2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPlayersByTeam(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.players.CreatePlayer(ctx, newPlayer("Zoe", "t1")))
	require.NoError(t, db.players.CreatePlayer(ctx, newPlayer("Anna", "t1", "t2")))
	require.NoError(t, db.players.CreatePlayer(ctx, newPlayer("Max", "t2")))

	players, err := db.players.ListPlayersByTeam(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Anna", players[0].Name)
	assert.Equal(t, "Zoe", players[1].Name)
}

func TestOrphanQueries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.teams.CreateTeam(ctx, &models.Team{ID: "t1", Name: "A", Color: "red", Admins: []string{"u1"}, CreatedAt: &now}))
	require.NoError(t, db.players.CreatePlayer(ctx, newPlayer("Anna", "t1", "gone")))

	refs, err := db.players.ReferencedTeamIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "gone"}, refs)

	existing, err := db.teams.ExistingTeamIDs(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, existing)

	n, err := db.players.RemoveTeamMemberships(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	players, err := db.players.ListPlayersByTeam(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, []string{"t1"}, players[0].TeamIDs)
	assert.True(t, ledger.TeamIDsConsistent(players[0]))
}

func TestTeamLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	team := &models.Team{ID: uuid.NewString(), Name: "A", Color: "red", Admins: []string{"u1"}, CreatedAt: &now}
	require.NoError(t, db.teams.CreateTeam(ctx, team))
	assert.ErrorIs(t, db.teams.CreateTeam(ctx, team), ErrDuplicate)

	updated, err := db.teams.UpdateTeam(ctx, team.ID, "B", "blue")
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)

	got, added, err := db.teams.AddAdmin(ctx, team.ID, "u2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"u1", "u2"}, got.Admins)

	_, added, err = db.teams.AddAdmin(ctx, team.ID, "u2")
	require.NoError(t, err)
	assert.False(t, added)

	list, err := db.teams.ListTeamsByAdmin(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = db.teams.DeleteTeam(ctx, team.ID)
	require.NoError(t, err)
	_, err = db.teams.GetTeam(ctx, team.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserEmailIsUnique(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.users.CreateUser(ctx, &models.User{ID: "u1", Email: "a@b.c", PasswordHash: "x"}))
	assert.ErrorIs(t, db.users.CreateUser(ctx, &models.User{ID: "u2", Email: "a@b.c", PasswordHash: "y"}), ErrDuplicate)

	u, err := db.users.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
