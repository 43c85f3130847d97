// multa/store/player_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

// PlayerStore represents the MongoDB data store for players and their balances.
type PlayerStore struct {
	collection *mongo.Collection
}

// NewPlayerStore creates a new PlayerStore instance.
func NewPlayerStore(collection *mongo.Collection) *PlayerStore {
	return &PlayerStore{
		collection: collection,
	}
}

func notFoundOr(err error, playerID, action string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	return fmt.Errorf("failed to %s player %s: %w", action, playerID, err)
}

// CreatePlayer inserts a new player document.
func (ps *PlayerStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.Teams == nil {
		player.Teams = []models.TeamBalance{}
	}
	if player.TeamIDs == nil {
		player.TeamIDs = []string{}
	}
	if _, err := ps.collection.InsertOne(ctx, player); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: player %s", ErrDuplicate, player.ID)
		}
		return fmt.Errorf("failed to create player %s: %w", player.ID, err)
	}
	return nil
}

// GetPlayer retrieves a player by ID.
func (ps *PlayerStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var player models.Player
	if err := ps.collection.FindOne(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		return nil, notFoundOr(err, playerID, "get")
	}
	return &player, nil
}

// ListPlayersByTeam returns every player with a membership in teamID, sorted by name.
func (ps *PlayerStore) ListPlayersByTeam(ctx context.Context, teamID string) ([]models.Player, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := ps.collection.Find(ctx, bson.M{"team_ids": teamID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find players of team %s: %w", teamID, err)
	}
	defer cursor.Close(ctx)

	players := []models.Player{}
	if err = cursor.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("failed to decode players of team %s: %w", teamID, err)
	}
	return players, nil
}

// RenamePlayer updates only the name.
func (ps *PlayerStore) RenamePlayer(ctx context.Context, playerID, name string) (*models.Player, error) {
	update := bson.M{"$set": bson.M{"name": name, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var player models.Player
	if err := ps.collection.FindOneAndUpdate(ctx, bson.M{"_id": playerID}, update, opts).Decode(&player); err != nil {
		return nil, notFoundOr(err, playerID, "rename")
	}
	return &player, nil
}

// DeletePlayer removes the player document and returns what was deleted.
func (ps *PlayerStore) DeletePlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var player models.Player
	if err := ps.collection.FindOneAndDelete(ctx, bson.M{"_id": playerID}).Decode(&player); err != nil {
		return nil, notFoundOr(err, playerID, "delete")
	}
	return &player, nil
}

// ApplyAdjustment adds delta to the balance entries of teamID in a single atomic
// update. Positive deltas also grow total_multa. When the player has no entry
// for teamID the document is not modified.
func (ps *PlayerStore) ApplyAdjustment(ctx context.Context, playerID, teamID string, delta float64) (*models.Player, error) {
	inc := bson.M{"teams.$[t].amount_due": delta}
	if delta > 0 {
		inc["teams.$[t].total_multa"] = delta
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{Filters: []interface{}{bson.M{"t.id": teamID}}})

	var player models.Player
	err := ps.collection.FindOneAndUpdate(ctx, bson.M{"_id": playerID}, bson.M{"$inc": inc}, opts).Decode(&player)
	if err != nil {
		return nil, notFoundOr(err, playerID, "adjust balance of")
	}
	return &player, nil
}

// AddMembership appends a zeroed balance for teamID and its index entry in one
// update. It reports false, without writing, when the player already belongs to teamID.
func (ps *PlayerStore) AddMembership(ctx context.Context, playerID, teamID string) (*models.Player, bool, error) {
	filter := bson.M{"_id": playerID, "team_ids": bson.M{"$ne": teamID}}
	update := bson.M{
		"$push": bson.M{
			"teams":    models.TeamBalance{ID: teamID},
			"team_ids": teamID,
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var player models.Player
	err := ps.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&player)
	if err == nil {
		return &player, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to add player %s to team %s: %w", playerID, teamID, err)
	}

	// Either the player is missing or already a member.
	existing, err := ps.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ReferencedTeamIDs lists every team id that appears in some player's memberships.
func (ps *PlayerStore) ReferencedTeamIDs(ctx context.Context) ([]string, error) {
	values, err := ps.collection.Distinct(ctx, "team_ids", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list referenced team ids: %w", err)
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// RemoveTeamMemberships pulls every balance and index entry of teamID from all
// players and returns how many players changed.
func (ps *PlayerStore) RemoveTeamMemberships(ctx context.Context, teamID string) (int64, error) {
	update := bson.M{
		"$pull": bson.M{
			"teams":    bson.M{"id": teamID},
			"team_ids": teamID,
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := ps.collection.UpdateMany(ctx, bson.M{"team_ids": teamID}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to remove memberships of team %s: %w", teamID, err)
	}
	return res.ModifiedCount, nil
}
