// multa/store/user_store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

// UserStore keeps the accounts that can sign in.
type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(collection *mongo.Collection) *UserStore {
	return &UserStore{collection: collection}
}

// CreateUser inserts a user. The unique email index turns a taken address into ErrDuplicate.
func (us *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := us.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, user.Email)
		}
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

func (us *UserStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return us.findOne(ctx, bson.M{"_id": uid}, uid)
}

func (us *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return us.findOne(ctx, bson.M{"email": email}, email)
}

func (us *UserStore) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	if err := us.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", key, err)
	}
	return &user, nil
}
