// multa/service/player_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// PlayerService encapsulates the business logic for player records.
type PlayerService struct {
	players PlayerRepository
	teams   TeamRepository
	bus     feed.Bus
	logger  *zap.Logger
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(players PlayerRepository, teams TeamRepository, bus feed.Bus, logger *zap.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		teams:   teams,
		bus:     bus,
		logger:  logger.Named("players"),
	}
}

// CreatePlayer adds a new player to teamID with a zeroed balance.
func (ps *PlayerService) CreatePlayer(ctx context.Context, uid, teamID, name string) (*models.Player, error) {
	clean, err := ledger.CleanName(name)
	if err != nil {
		return nil, validationErr("player name: %v", err)
	}
	if _, err := adminTeam(ctx, ps.teams, uid, teamID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	player := &models.Player{
		ID:        uuid.NewString(),
		Name:      clean,
		Teams:     []models.TeamBalance{ledger.NewBalance(teamID)},
		TeamIDs:   []string{teamID},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := ps.players.CreatePlayer(ctx, player); err != nil {
		ps.logger.Error("failed to create player", zap.String("team_id", teamID), zap.Error(err))
		return nil, storeErr(err, ErrPlayerNotFound)
	}
	ps.logger.Info("player created", zap.String("player_id", player.ID), zap.String("team_id", teamID))
	publish(ctx, ps.bus, ps.logger, feed.PlayerEvent(feed.OpCreate, player.ID, player.TeamIDs))
	return player, nil
}

// GetPlayer returns the player restricted to the teams uid administers.
func (ps *PlayerService) GetPlayer(ctx context.Context, uid, playerID string) (*models.Player, error) {
	return visiblePlayer(ctx, ps.teams, ps.players, uid, playerID)
}

// RenamePlayer changes the player's name.
func (ps *PlayerService) RenamePlayer(ctx context.Context, uid, playerID, name string) (*models.Player, error) {
	clean, err := ledger.CleanName(name)
	if err != nil {
		return nil, validationErr("player name: %v", err)
	}
	view, err := visiblePlayer(ctx, ps.teams, ps.players, uid, playerID)
	if err != nil {
		return nil, err
	}
	updated, err := ps.players.RenamePlayer(ctx, playerID, clean)
	if err != nil {
		return nil, storeErr(err, ErrPlayerNotFound)
	}
	publish(ctx, ps.bus, ps.logger, feed.PlayerEvent(feed.OpUpdate, playerID, updated.TeamIDs))
	out := restrictToTeams(*updated, view.TeamIDs)
	return &out, nil
}

// DeletePlayer removes the player record. Team documents are not touched.
func (ps *PlayerService) DeletePlayer(ctx context.Context, uid, playerID string) error {
	if _, err := visiblePlayer(ctx, ps.teams, ps.players, uid, playerID); err != nil {
		return err
	}
	deleted, err := ps.players.DeletePlayer(ctx, playerID)
	if err != nil {
		return storeErr(err, ErrPlayerNotFound)
	}
	ps.logger.Info("player deleted", zap.String("player_id", playerID), zap.String("uid", uid))
	publish(ctx, ps.bus, ps.logger, feed.PlayerEvent(feed.OpDelete, playerID, deleted.TeamIDs))
	return nil
}
