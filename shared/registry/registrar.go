// shared/registry/registrar.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/config"
)

// ServiceRegistrar handles the self-registration and heartbeating of a service instance.
type ServiceRegistrar struct {
	redisClient redis.UniversalClient
	serviceType string
	cfg         *config.CommonConfig
	serviceID   string
	version     string
	logger      *zap.Logger
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewServiceRegistrar creates a new ServiceRegistrar with a fresh instance id.
func NewServiceRegistrar(redisClient redis.UniversalClient, serviceType, version string, cfg *config.CommonConfig, logger *zap.Logger) *ServiceRegistrar {
	serviceID := fmt.Sprintf("%s-%s", serviceType, uuid.New().String())

	return &ServiceRegistrar{
		redisClient: redisClient,
		serviceType: serviceType,
		cfg:         cfg,
		serviceID:   serviceID,
		version:     version,
		logger:      logger.Named("registrar").With(zap.String("service_id", serviceID)),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the service registration and heartbeating process in a goroutine.
func (sr *ServiceRegistrar) Start() {
	sr.logger.Info("starting service registrar",
		zap.String("service_type", sr.serviceType),
		zap.String("ip", sr.cfg.ServiceIP),
		zap.Int("port", sr.cfg.ServicePort))

	go sr.run()
}

// Stop signals the registrar to stop, waits for it and removes this instance from the registry.
func (sr *ServiceRegistrar) Stop() {
	close(sr.stopChan)
	<-sr.doneChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sr.redisClient.HDel(ctx, hashKey(sr.serviceType), sr.serviceID).Err(); err != nil {
		sr.logger.Error("failed to remove service from registry on shutdown", zap.Error(err))
	} else {
		sr.logger.Info("service removed from registry")
	}
}

// run is the main loop for the registrar's background goroutine.
func (sr *ServiceRegistrar) run() {
	defer close(sr.doneChan)

	ticker := time.NewTicker(sr.cfg.HeartbeatInterval)
	defer ticker.Stop()

	sr.registerService()

	var cleanup <-chan time.Time
	if sr.cfg.RegistryCleanupInterval > 0 {
		cleanupTicker := time.NewTicker(sr.cfg.RegistryCleanupInterval)
		defer cleanupTicker.Stop()
		cleanup = cleanupTicker.C
	}

	for {
		select {
		case <-ticker.C:
			sr.registerService()
		case <-cleanup:
			sr.performCleanup()
		case <-sr.stopChan:
			return
		}
	}
}

// registerService performs the actual registration/heartbeat in Redis.
func (sr *ServiceRegistrar) registerService() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	serviceInfo := ServiceInfo{
		ServiceID:   sr.serviceID,
		ServiceType: sr.serviceType,
		IP:          sr.cfg.ServiceIP,
		Port:        sr.cfg.ServicePort,
		LastSeen:    time.Now().UnixMilli(),
		Metadata:    map[string]string{"version": sr.version},
	}

	infoJSON, err := json.Marshal(serviceInfo)
	if err != nil {
		sr.logger.Error("failed to marshal ServiceInfo", zap.Error(err))
		return
	}

	if err := sr.redisClient.HSet(ctx, hashKey(sr.serviceType), sr.serviceID, infoJSON).Err(); err != nil {
		sr.logger.Error("failed to heartbeat service to Redis", zap.Error(err))
		return
	}
	sr.logger.Debug("heartbeat sent")
}

// performCleanup iterates through registered services and removes stale ones.
func (sr *ServiceRegistrar) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := hashKey(sr.serviceType)
	results, err := sr.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		sr.logger.Error("registry cleanup failed to list services", zap.Error(err))
		return
	}

	currentTime := time.Now()
	for instanceID, infoJSON := range results {
		var info ServiceInfo
		stale := false
		if err := json.Unmarshal([]byte(infoJSON), &info); err != nil {
			sr.logger.Warn("deleting corrupt registry entry", zap.String("instance_id", instanceID), zap.Error(err))
			stale = true
		} else if currentTime.Sub(time.UnixMilli(info.LastSeen)) > sr.cfg.HeartbeatTTL {
			stale = true
		}
		if !stale {
			continue
		}
		if err := sr.redisClient.HDel(ctx, key, instanceID).Err(); err != nil {
			sr.logger.Error("failed to delete stale registry entry", zap.String("instance_id", instanceID), zap.Error(err))
		} else {
			sr.logger.Info("removed stale service from registry", zap.String("instance_id", instanceID))
		}
	}
}

// GetServiceID returns the unique ID assigned to this service instance.
func (sr *ServiceRegistrar) GetServiceID() string {
	return sr.serviceID
}

// GetServiceType returns the type of this service instance.
func (sr *ServiceRegistrar) GetServiceType() string {
	return sr.serviceType
}
