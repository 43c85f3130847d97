// multa/sweeper/orphan_sweeper.go
package sweeper

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/service"
	"github.com/Ftotnem/multa-tracker/shared/cluster"
	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/metrics"
)

// sweepTaskKey is hashed onto the ring so exactly one instance runs the sweep.
const sweepTaskKey = "orphan_membership_sweep"

// OrphanSweeper removes player memberships that point at deleted teams.
// Team deletion itself never writes players; this job catches up afterwards.
type OrphanSweeper struct {
	players    service.PlayerRepository
	teams      service.TeamRepository
	bus        feed.Bus
	leadership cluster.Leadership
	interval   time.Duration
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewOrphanSweeper creates the sweeper. m may be nil.
func NewOrphanSweeper(
	players service.PlayerRepository,
	teams service.TeamRepository,
	bus feed.Bus,
	leadership cluster.Leadership,
	interval, timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *OrphanSweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &OrphanSweeper{
		players:    players,
		teams:      teams,
		bus:        bus,
		leadership: leadership,
		interval:   interval,
		timeout:    timeout,
		metrics:    m,
		logger:     logger.Named("sweeper"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop. This should be run in a goroutine.
func (s *OrphanSweeper) Start() {
	defer close(s.done)
	s.logger.Info("orphan sweeper starting", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("orphan sweeper shutting down")
			return
		case <-ticker.C:
			s.maybeSweep()
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (s *OrphanSweeper) Stop() {
	s.cancel()
	<-s.done
}

func (s *OrphanSweeper) maybeSweep() {
	isLeader, err := s.leadership.IsResponsible(sweepTaskKey)
	if err != nil {
		s.logger.Error("failed to check sweep leadership", zap.Error(err))
		s.count("leadership_error")
		return
	}
	if !isLeader {
		s.count("skipped")
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("orphan sweep failed", zap.Error(err))
	}
}

// Sweep performs one pass and returns the team ids whose memberships were removed.
func (s *OrphanSweeper) Sweep(ctx context.Context) ([]string, error) {
	referenced, err := s.players.ReferencedTeamIDs(ctx)
	if err != nil {
		s.count("failed")
		return nil, err
	}
	existing, err := s.teams.ExistingTeamIDs(ctx, referenced)
	if err != nil {
		s.count("failed")
		return nil, err
	}

	var cleaned []string
	for _, teamID := range referenced {
		if slices.Contains(existing, teamID) {
			continue
		}
		n, err := s.players.RemoveTeamMemberships(ctx, teamID)
		if err != nil {
			s.count("failed")
			return cleaned, err
		}
		cleaned = append(cleaned, teamID)
		if s.metrics != nil {
			s.metrics.OrphansRemoved.Add(float64(n))
		}
		s.logger.Info("removed memberships of deleted team", zap.String("team_id", teamID), zap.Int64("players", n))
		if err := s.bus.Publish(ctx, feed.PlayerEvent(feed.OpUpdate, "", []string{teamID})); err != nil {
			s.logger.Warn("failed to publish sweep event", zap.String("team_id", teamID), zap.Error(err))
		}
	}
	s.count("completed")
	return cleaned, nil
}

func (s *OrphanSweeper) count(result string) {
	if s.metrics != nil {
		s.metrics.OrphanSweeps.WithLabelValues(result).Inc()
	}
}
