// multa/store/indexes.go
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the queries above rely on. Creating an
// existing index is a no-op, so this runs on every start.
func EnsureIndexes(ctx context.Context, teams, players, users *mongo.Collection) error {
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{teams, mongo.IndexModel{
			Keys:    bson.D{{Key: "admins", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("admins_created_at"),
		}},
		{players, mongo.IndexModel{
			Keys:    bson.D{{Key: "team_ids", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("team_ids_name"),
		}},
		{users, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		}},
	}
	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.coll.Name(), err)
		}
	}
	return nil
}
