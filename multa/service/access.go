// multa/service/access.go
package service

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

const publishTimeout = 2 * time.Second

// adminTeam loads teamID and checks that uid administers it.
func adminTeam(ctx context.Context, teams TeamRepository, uid, teamID string) (*models.Team, error) {
	if teamID == "" {
		return nil, validationErr("team id is required")
	}
	team, err := teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, storeErr(err, ErrTeamNotFound)
	}
	if !team.IsAdmin(uid) {
		return nil, ErrForbidden
	}
	return team, nil
}

// administeredTeamIDs returns the ids of the teams uid administers.
func administeredTeamIDs(ctx context.Context, teams TeamRepository, uid string) ([]string, error) {
	list, err := teams.ListTeamsByAdmin(ctx, uid)
	if err != nil {
		return nil, storeErr(err, ErrTeamNotFound)
	}
	ids := make([]string, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// visiblePlayer loads a player and trims it to the memberships uid administers.
// A player without any such membership is Forbidden.
func visiblePlayer(ctx context.Context, teams TeamRepository, players PlayerRepository, uid, playerID string) (*models.Player, error) {
	if playerID == "" {
		return nil, validationErr("player id is required")
	}
	player, err := players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storeErr(err, ErrPlayerNotFound)
	}
	own, err := administeredTeamIDs(ctx, teams, uid)
	if err != nil {
		return nil, err
	}
	view := restrictToTeams(*player, own)
	if len(view.TeamIDs) == 0 {
		return nil, ErrForbidden
	}
	return &view, nil
}

// restrictToTeams keeps only the memberships in allowed. Order is preserved.
func restrictToTeams(p models.Player, allowed []string) models.Player {
	out := p.Clone()
	out.Teams = slices.DeleteFunc(out.Teams, func(b models.TeamBalance) bool { return !slices.Contains(allowed, b.ID) })
	out.TeamIDs = slices.DeleteFunc(out.TeamIDs, func(id string) bool { return !slices.Contains(allowed, id) })
	return out
}

// publish announces a committed change. Failures are logged, never returned.
func publish(ctx context.Context, bus feed.Bus, logger *zap.Logger, ev feed.Event) {
	if bus == nil {
		return
	}
	// The write already happened, so the event goes out even if the caller gave up.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := bus.Publish(pubCtx, ev); err != nil {
		logger.Warn("failed to publish change event",
			zap.String("collection", ev.Collection),
			zap.String("document_id", ev.DocumentID),
			zap.String("op", ev.Op),
			zap.Error(err))
	}
}
