// multa/store/revocation_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	sharedredis "github.com/Ftotnem/multa-tracker/shared/redis"
)

// RevocationStore remembers signed-out token ids in Redis until the token would
// have expired anyway.
type RevocationStore struct {
	client redis.UniversalClient
}

func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return &RevocationStore{client: client}
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf(sharedredis.RevokedTokenKeyPrefix, tokenID)
}

// Revoke marks tokenID as unusable until the given time.
func (rs *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // Already expired; nothing left to block.
	}
	if err := rs.client.Set(ctx, revokedKey(tokenID), until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token %s: %w", tokenID, err)
	}
	return nil
}

// IsRevoked checks whether tokenID was signed out.
func (rs *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := rs.client.Get(ctx, revokedKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation of token %s: %w", tokenID, err)
	}
	return true, nil
}
