// shared/registry/client.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RegistryClient reads the registry written by ServiceRegistrar instances.
type RegistryClient struct {
	redisClient    redis.UniversalClient
	serviceTimeout time.Duration
	logger         *zap.Logger
}

func NewRegistryClient(redisClient redis.UniversalClient, serviceTimeout time.Duration, logger *zap.Logger) *RegistryClient {
	return &RegistryClient{
		redisClient:    redisClient,
		serviceTimeout: serviceTimeout,
		logger:         logger.Named("registry"),
	}
}

// GetActiveServices retrieves a map of active service instances for a given service type,
// keyed by instance ID. Entries whose last heartbeat is older than the timeout are skipped.
func (rc *RegistryClient) GetActiveServices(ctx context.Context, serviceType string) (map[string]ServiceInfo, error) {
	results, err := rc.redisClient.HGetAll(ctx, hashKey(serviceType)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get all services of type %s from Redis: %w", serviceType, err)
	}

	activeServices := make(map[string]ServiceInfo)
	currentTime := time.Now()

	for instanceID, infoJSON := range results {
		var info ServiceInfo
		if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
			// Left for the registrar cleanup loop.
			rc.logger.Warn("skipping malformed registry entry",
				zap.String("instance_id", instanceID), zap.String("service_type", serviceType), zap.Error(err))
			continue
		}
		if currentTime.Sub(time.UnixMilli(info.LastSeen)) <= rc.serviceTimeout {
			activeServices[instanceID] = info
		}
	}
	return activeServices, nil
}
