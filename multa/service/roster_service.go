// multa/service/roster_service.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ftotnem/multa-tracker/shared/feed"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/metrics"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// Live subscription kinds.
const (
	LiveRoster = "roster"
	LiveTeams  = "teams"
)

// RosterService answers "who owes what in this team", once or live.
type RosterService struct {
	teams   TeamRepository
	players PlayerRepository
	bus     feed.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRosterService(teams TeamRepository, players PlayerRepository, bus feed.Bus, m *metrics.Metrics, logger *zap.Logger) *RosterService {
	return &RosterService{
		teams:   teams,
		players: players,
		bus:     bus,
		metrics: m,
		logger:  logger.Named("roster"),
	}
}

// Roster returns the team and each member's balance for that team.
func (rs *RosterService) Roster(ctx context.Context, uid, teamID string) (*models.RosterSnapshot, error) {
	if teamID == "" {
		return nil, validationErr("team id is required")
	}
	var (
		team    *models.Team
		players []models.Player
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := rs.teams.GetTeam(gctx, teamID)
		if err != nil {
			return storeErr(err, ErrTeamNotFound)
		}
		team = t
		return nil
	})
	g.Go(func() error {
		p, err := rs.players.ListPlayersByTeam(gctx, teamID)
		if err != nil {
			return storeErr(err, ErrTeamNotFound)
		}
		players = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !team.IsAdmin(uid) {
		return nil, ErrForbidden
	}
	return &models.RosterSnapshot{
		Team:    team,
		Players: rosterEntries(players, teamID),
		At:      time.Now().UTC(),
	}, nil
}

// rosterEntries renders each player's balance for teamID, found by id.
func rosterEntries(players []models.Player, teamID string) []models.RosterEntry {
	entries := make([]models.RosterEntry, 0, len(players))
	for _, p := range players {
		b, _ := ledger.BalanceFor(p, teamID)
		entries = append(entries, models.RosterEntry{
			PlayerID:   p.ID,
			Name:       p.Name,
			AmountDue:  b.AmountDue,
			TotalMulta: b.TotalMulta,
		})
	}
	return entries
}

// liveRoster is Roster for refreshes: losing the team or access yields an empty snapshot.
func (rs *RosterService) liveRoster(ctx context.Context, uid, teamID string) (models.RosterSnapshot, error) {
	snap, err := rs.Roster(ctx, uid, teamID)
	switch {
	case err == nil:
		return *snap, nil
	case isGone(err):
		return models.RosterSnapshot{Players: []models.RosterEntry{}, At: time.Now().UTC()}, nil
	default:
		return models.RosterSnapshot{}, err
	}
}

func isGone(err error) bool {
	return errors.Is(err, ErrTeamNotFound) || errors.Is(err, ErrForbidden)
}

// SubscribeRoster delivers the current roster, then a full new roster whenever
// the team or one of its players changes. An initial access failure is returned
// directly; later loss of access is delivered as a snapshot without team.
// Returning an error from onChange ends the subscription with that error.
func (rs *RosterService) SubscribeRoster(ctx context.Context, sess Session, teamID string, onChange func(models.RosterSnapshot) error) (*Subscription, error) {
	relevant := func(ev feed.Event) bool { return ev.TouchesTeam(teamID) }
	dirty, unlisten := listen(rs.bus, relevant)

	initial, err := rs.Roster(ctx, sess.UID, teamID)
	if err != nil {
		unlisten()
		return nil, err
	}

	q := liveQuery[models.RosterSnapshot]{
		kind:    LiveRoster,
		load: func(ctx context.Context) (models.RosterSnapshot, error) {
			return rs.liveRoster(ctx, sess.UID, teamID)
		},
		deliver: func(s models.RosterSnapshot, version uint64) error {
			s.Version = version
			return onChange(s)
		},
	}
	return q.run(ctx, rs, sess, dirty, unlisten, *initial), nil
}

// SubscribeTeams delivers the list of teams the caller administers and a fresh
// list whenever one of them, or a team granting them admin rights, changes.
func (rs *RosterService) SubscribeTeams(ctx context.Context, sess Session, onChange func(models.TeamsSnapshot) error) (*Subscription, error) {
	relevant := func(ev feed.Event) bool { return ev.TouchesAdmin(sess.UID) }
	dirty, unlisten := listen(rs.bus, relevant)

	load := func(ctx context.Context) (models.TeamsSnapshot, error) {
		teams, err := rs.teams.ListTeamsByAdmin(ctx, sess.UID)
		if err != nil {
			return models.TeamsSnapshot{}, storeErr(err, ErrTeamNotFound)
		}
		return models.TeamsSnapshot{Teams: teams, At: time.Now().UTC()}, nil
	}
	initial, err := load(ctx)
	if err != nil {
		unlisten()
		return nil, err
	}

	q := liveQuery[models.TeamsSnapshot]{
		kind:    LiveTeams,
		load:    load,
		deliver: func(s models.TeamsSnapshot, version uint64) error {
			s.Version = version
			return onChange(s)
		},
	}
	return q.run(ctx, rs, sess, dirty, unlisten, initial), nil
}

func (rs *RosterService) gauge(kind string, delta float64) {
	if rs.metrics != nil {
		rs.metrics.LiveSubscriptions.WithLabelValues(kind).Add(delta)
	}
}
