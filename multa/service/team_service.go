// multa/service/team_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/store"
	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// TeamService encapsulates the business logic for teams and their admins.
type TeamService struct {
	teams  TeamRepository
	users  UserRepository
	bus    feed.Bus
	logger *zap.Logger
}

// NewTeamService creates a new TeamService instance.
func NewTeamService(teams TeamRepository, users UserRepository, bus feed.Bus, logger *zap.Logger) *TeamService {
	return &TeamService{
		teams:  teams,
		users:  users,
		bus:    bus,
		logger: logger.Named("teams"),
	}
}

func cleanTeamFields(name, color string) (string, string, error) {
	n, err := ledger.CleanName(name)
	if err != nil {
		return "", "", validationErr("team name: %v", err)
	}
	c, err := ledger.CleanName(color)
	if err != nil {
		return "", "", validationErr("team color: %v", err)
	}
	return n, c, nil
}

// CreateTeam creates a team administered by uid.
func (ts *TeamService) CreateTeam(ctx context.Context, uid, name, color string) (*models.Team, error) {
	if uid == "" {
		return nil, ErrUnauthorized
	}
	name, color, err := cleanTeamFields(name, color)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		Admins:    []string{uid},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := ts.teams.CreateTeam(ctx, team); err != nil {
		ts.logger.Error("failed to create team", zap.String("uid", uid), zap.Error(err))
		return nil, storeErr(err, ErrTeamNotFound)
	}
	ts.logger.Info("team created", zap.String("team_id", team.ID), zap.String("uid", uid))
	publish(ctx, ts.bus, ts.logger, feed.TeamEvent(feed.OpCreate, team.ID, team.Admins))
	return team, nil
}

// ListTeams returns the teams uid administers.
func (ts *TeamService) ListTeams(ctx context.Context, uid string) ([]models.Team, error) {
	teams, err := ts.teams.ListTeamsByAdmin(ctx, uid)
	if err != nil {
		return nil, storeErr(err, ErrTeamNotFound)
	}
	return teams, nil
}

// GetTeam returns the team when uid administers it.
func (ts *TeamService) GetTeam(ctx context.Context, uid, teamID string) (*models.Team, error) {
	return adminTeam(ctx, ts.teams, uid, teamID)
}

// UpdateTeam renames and recolors a team.
func (ts *TeamService) UpdateTeam(ctx context.Context, uid, teamID, name, color string) (*models.Team, error) {
	name, color, err := cleanTeamFields(name, color)
	if err != nil {
		return nil, err
	}
	if _, err := adminTeam(ctx, ts.teams, uid, teamID); err != nil {
		return nil, err
	}
	team, err := ts.teams.UpdateTeam(ctx, teamID, name, color)
	if err != nil {
		return nil, storeErr(err, ErrTeamNotFound)
	}
	publish(ctx, ts.bus, ts.logger, feed.TeamEvent(feed.OpUpdate, team.ID, team.Admins))
	return team, nil
}

// DeleteTeam removes the team document only. Memberships pointing at it are
// cleaned up later by the orphan sweeper.
func (ts *TeamService) DeleteTeam(ctx context.Context, uid, teamID string) error {
	if _, err := adminTeam(ctx, ts.teams, uid, teamID); err != nil {
		return err
	}
	deleted, err := ts.teams.DeleteTeam(ctx, teamID)
	if err != nil {
		return storeErr(err, ErrTeamNotFound)
	}
	ts.logger.Info("team deleted", zap.String("team_id", teamID), zap.String("uid", uid))
	publish(ctx, ts.bus, ts.logger, feed.TeamEvent(feed.OpDelete, teamID, deleted.Admins))
	return nil
}

// AddTeamAdmin grants admin rights to another user, named by uid or email.
// Granting to an existing admin succeeds without change.
func (ts *TeamService) AddTeamAdmin(ctx context.Context, uid, teamID, newAdmin string) (*models.Team, bool, error) {
	newAdmin = strings.TrimSpace(newAdmin)
	if newAdmin == "" {
		return nil, false, validationErr("new admin is required")
	}
	if _, err := adminTeam(ctx, ts.teams, uid, teamID); err != nil {
		return nil, false, err
	}

	var user *models.User
	var err error
	if strings.Contains(newAdmin, "@") {
		user, err = ts.users.GetUserByEmail(ctx, normalizeEmail(newAdmin))
	} else {
		user, err = ts.users.GetUser(ctx, newAdmin)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, storeErr(err, ErrUserNotFound)
	}

	team, added, err := ts.teams.AddAdmin(ctx, teamID, user.ID)
	if err != nil {
		return nil, false, storeErr(err, ErrTeamNotFound)
	}
	if added {
		ts.logger.Info("team admin added", zap.String("team_id", teamID), zap.String("admin", user.ID))
		publish(ctx, ts.bus, ts.logger, feed.TeamEvent(feed.OpUpdate, teamID, team.Admins))
	}
	return team, added, nil
}
