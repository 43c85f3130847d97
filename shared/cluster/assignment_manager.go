// shared/cluster/assignment_manager.go
package cluster

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/stathat/consistent"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/registry"
)

// Leadership decides which instance runs work keyed by an entity id.
type Leadership interface {
	IsResponsible(entityID string) (bool, error)
}

// Standalone is the Leadership of a deployment with a single instance.
type Standalone struct{}

func (Standalone) IsResponsible(string) (bool, error) { return true, nil }

// MemberSource lists the live instances of a service type.
type MemberSource interface {
	GetActiveServices(ctx context.Context, serviceType string) (map[string]registry.ServiceInfo, error)
}

// ServiceAssignmentManager helps a service instance determine if it's responsible
// for a given entity based on consistent hashing across active instances.
type ServiceAssignmentManager struct {
	members        MemberSource
	serviceID      string
	serviceType    string
	updateInterval time.Duration
	consistentHash *consistent.Consistent
	chMux          sync.RWMutex
	logger         *zap.Logger
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewServiceAssignmentManager creates the manager with only this instance on the ring.
func NewServiceAssignmentManager(members MemberSource, serviceID, serviceType string, updateInterval time.Duration, logger *zap.Logger) *ServiceAssignmentManager {
	ctx, cancel := context.WithCancel(context.Background())

	sam := &ServiceAssignmentManager{
		members:        members,
		serviceID:      serviceID,
		serviceType:    serviceType,
		updateInterval: updateInterval,
		consistentHash: consistent.New(),
		logger:         logger.Named("assignment"),
		ctx:            ctx,
		cancel:         cancel,
	}
	sam.consistentHash.Add(serviceID)

	sam.logger.Info("assignment manager initialized",
		zap.String("service_type", serviceType),
		zap.String("service_id", serviceID),
		zap.Duration("update_interval", updateInterval))
	return sam
}

// Start runs the ring updater until Stop. Run it in a goroutine.
func (sam *ServiceAssignmentManager) Start() {
	ticker := time.NewTicker(sam.updateInterval)
	defer ticker.Stop()

	sam.updateConsistentHashRing()
	for {
		select {
		case <-sam.ctx.Done():
			sam.logger.Info("assignment manager shutting down")
			return
		case <-ticker.C:
			sam.updateConsistentHashRing()
		}
	}
}

// Stop gracefully shuts down the ServiceAssignmentManager.
func (sam *ServiceAssignmentManager) Stop() {
	sam.cancel()
}

// updateConsistentHashRing rebuilds the ring when the set of active members changed.
func (sam *ServiceAssignmentManager) updateConsistentHashRing() {
	activeServices, err := sam.members.GetActiveServices(sam.ctx, sam.serviceType)
	if err != nil {
		sam.logger.Error("failed to get active services", zap.Error(err))
		return
	}

	members := make([]string, 0, len(activeServices))
	for id := range activeServices {
		members = append(members, id)
	}
	slices.Sort(members)

	sam.chMux.Lock()
	defer sam.chMux.Unlock()

	currentMembers := sam.consistentHash.Members()
	slices.Sort(currentMembers)

	if !slices.Equal(members, currentMembers) {
		newHashRing := consistent.New()
		for _, member := range members {
			newHashRing.Add(member)
		}
		sam.consistentHash = newHashRing
		sam.logger.Info("consistent hash ring updated", zap.Strings("members", members))
	}
}

// IsResponsible checks if the current service instance owns the given entity ID.
func (sam *ServiceAssignmentManager) IsResponsible(entityID string) (bool, error) {
	sam.chMux.RLock()
	defer sam.chMux.RUnlock()

	if len(sam.consistentHash.Members()) == 0 {
		return false, fmt.Errorf("consistent hash ring is empty for service type %s", sam.serviceType)
	}

	responsibleService, err := sam.consistentHash.Get(entityID)
	if err != nil {
		return false, fmt.Errorf("failed to get responsible service for entity '%s': %w", entityID, err)
	}
	return responsibleService == sam.serviceID, nil
}
