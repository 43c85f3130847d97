// multa/service/ledger_service.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/metrics"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// Adjustment kinds, used for metrics and logs.
const (
	KindMulta      = "multa"
	KindPayment    = "payment"
	KindAdjustment = "adjustment"
)

// LedgerService records multa and payments against a player's team balance.
type LedgerService struct {
	players PlayerRepository
	teams   TeamRepository
	bus     feed.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewLedgerService creates a new LedgerService instance. m may be nil.
func NewLedgerService(players PlayerRepository, teams TeamRepository, bus feed.Bus, m *metrics.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		players: players,
		teams:   teams,
		bus:     bus,
		metrics: m,
		logger:  logger.Named("ledger"),
	}
}

// RecordAdjustment applies delta to the player's balance for teamID as one
// atomic store update. A player without that membership is left unchanged and
// the call still succeeds with a nil player.
func (ls *LedgerService) RecordAdjustment(ctx context.Context, uid, teamID, playerID string, delta float64) (*models.Player, error) {
	return ls.adjust(ctx, KindAdjustment, uid, teamID, playerID, delta)
}

// AddMulta records a penalty of amount.
func (ls *LedgerService) AddMulta(ctx context.Context, uid, teamID, playerID string, amount float64) (*models.Player, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		ls.count(KindMulta, "invalid")
		return nil, validationErr("%v", err)
	}
	return ls.adjust(ctx, KindMulta, uid, teamID, playerID, amount)
}

// PayMulta records a payment of amount.
func (ls *LedgerService) PayMulta(ctx context.Context, uid, teamID, playerID string, amount float64) (*models.Player, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		ls.count(KindPayment, "invalid")
		return nil, validationErr("%v", err)
	}
	return ls.adjust(ctx, KindPayment, uid, teamID, playerID, -amount)
}

func (ls *LedgerService) adjust(ctx context.Context, kind, uid, teamID, playerID string, delta float64) (*models.Player, error) {
	if err := ledger.ValidateDelta(delta); err != nil {
		ls.count(kind, "invalid")
		return nil, validationErr("%v", err)
	}
	if playerID == "" {
		return nil, validationErr("player id is required")
	}
	if _, err := adminTeam(ctx, ls.teams, uid, teamID); err != nil {
		ls.count(kind, "denied")
		return nil, err
	}

	player, err := ls.players.ApplyAdjustment(ctx, playerID, teamID, delta)
	if err != nil {
		ls.count(kind, "failed")
		ls.logger.Warn("balance adjustment failed",
			zap.String("kind", kind), zap.String("player_id", playerID), zap.String("team_id", teamID), zap.Error(err))
		return nil, storeErr(err, ErrPlayerNotFound)
	}

	// A player outside teamID is left untouched and not echoed back, so the
	// call says nothing about players of other teams.
	if _, matched := ledger.BalanceFor(*player, teamID); !matched {
		ls.count(kind, "unmatched")
		ls.logger.Info("adjustment for player outside team ignored",
			zap.String("player_id", playerID), zap.String("team_id", teamID))
		return nil, nil
	}

	ls.count(kind, "applied")
	ls.logger.Debug("balance adjusted",
		zap.String("kind", kind), zap.String("player_id", playerID), zap.String("team_id", teamID), zap.Float64("delta", delta))
	publish(ctx, ls.bus, ls.logger, feed.PlayerEvent(feed.OpUpdate, playerID, player.TeamIDs))

	out := restrictToTeams(*player, []string{teamID})
	return &out, nil
}

// AddMembership lets an existing player join teamID with a zeroed balance. It
// reports false when the player already belonged to the team.
func (ls *LedgerService) AddMembership(ctx context.Context, uid, teamID, playerID string) (*models.Player, bool, error) {
	if playerID == "" {
		return nil, false, validationErr("player id is required")
	}
	if _, err := adminTeam(ctx, ls.teams, uid, teamID); err != nil {
		return nil, false, err
	}
	player, added, err := ls.players.AddMembership(ctx, playerID, teamID)
	if err != nil {
		return nil, false, storeErr(err, ErrPlayerNotFound)
	}
	if added {
		ls.logger.Info("player joined team", zap.String("player_id", playerID), zap.String("team_id", teamID))
		publish(ctx, ls.bus, ls.logger, feed.PlayerEvent(feed.OpUpdate, playerID, player.TeamIDs))
	}
	out := restrictToTeams(*player, []string{teamID})
	return &out, added, nil
}

func (ls *LedgerService) count(kind, result string) {
	if ls.metrics != nil {
		ls.metrics.Adjustments.WithLabelValues(kind, result).Inc()
	}
}
