// multa/store/team_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

// TeamStore represents the MongoDB data store for teams.
type TeamStore struct {
	collection *mongo.Collection
}

// NewTeamStore creates a new TeamStore instance.
func NewTeamStore(collection *mongo.Collection) *TeamStore {
	return &TeamStore{
		collection: collection,
	}
}

// CreateTeam inserts a new team document.
func (ts *TeamStore) CreateTeam(ctx context.Context, team *models.Team) error {
	if _, err := ts.collection.InsertOne(ctx, team); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: team %s", ErrDuplicate, team.ID)
		}
		return fmt.Errorf("failed to create team %s: %w", team.ID, err)
	}
	return nil
}

// GetTeam retrieves a team by its ID.
func (ts *TeamStore) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := ts.collection.FindOne(ctx, bson.M{"_id": teamID}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return nil, fmt.Errorf("failed to get team %s: %w", teamID, err)
	}
	return &team, nil
}

// ListTeamsByAdmin returns every team uid administers, oldest first.
func (ts *TeamStore) ListTeamsByAdmin(ctx context.Context, uid string) ([]models.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := ts.collection.Find(ctx, bson.M{"admins": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find teams for admin %s: %w", uid, err)
	}
	defer cursor.Close(ctx)

	teams := []models.Team{}
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("failed to decode teams for admin %s: %w", uid, err)
	}
	return teams, nil
}

// UpdateTeam sets name and color and returns the updated document.
func (ts *TeamStore) UpdateTeam(ctx context.Context, teamID, name, color string) (*models.Team, error) {
	update := bson.M{"$set": bson.M{"name": name, "color": color, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var team models.Team
	err := ts.collection.FindOneAndUpdate(ctx, bson.M{"_id": teamID}, update, opts).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return nil, fmt.Errorf("failed to update team %s: %w", teamID, err)
	}
	return &team, nil
}

// DeleteTeam removes the team document and returns what was deleted.
// Player memberships are left alone.
func (ts *TeamStore) DeleteTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := ts.collection.FindOneAndDelete(ctx, bson.M{"_id": teamID}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return nil, fmt.Errorf("failed to delete team %s: %w", teamID, err)
	}
	return &team, nil
}

// AddAdmin grants uid admin rights. It reports false when uid already was an admin.
func (ts *TeamStore) AddAdmin(ctx context.Context, teamID, uid string) (*models.Team, bool, error) {
	update := bson.M{"$addToSet": bson.M{"admins": uid}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Team
	err := ts.collection.FindOneAndUpdate(ctx, bson.M{"_id": teamID}, update, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("%w: team %s", ErrNotFound, teamID)
		}
		return nil, false, fmt.Errorf("failed to add admin %s to team %s: %w", uid, teamID, err)
	}
	if slices.Contains(before.Admins, uid) {
		return &before, false, nil
	}
	after := before.Clone()
	after.Admins = append(after.Admins, uid)
	return &after, true, nil
}

// ExistingTeamIDs returns the subset of ids that still have a team document.
func (ts *TeamStore) ExistingTeamIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := ts.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %d team ids: %w", len(ids), err)
	}
	defer cursor.Close(ctx)

	var found []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode team id: %w", err)
		}
		found = append(found, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error during team id cursor iteration: %w", err)
	}
	return found, nil
}
