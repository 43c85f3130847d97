// multa/service/repository.go
package service

import (
	"context"
	"time"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

// TeamRepository is implemented by store.TeamStore and memstore.Store.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	ListTeamsByAdmin(ctx context.Context, uid string) ([]models.Team, error)
	UpdateTeam(ctx context.Context, teamID, name, color string) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID string) (*models.Team, error)
	AddAdmin(ctx context.Context, teamID, uid string) (*models.Team, bool, error)
	ExistingTeamIDs(ctx context.Context, ids []string) ([]string, error)
}

// PlayerRepository is implemented by store.PlayerStore and memstore.Store.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	ListPlayersByTeam(ctx context.Context, teamID string) ([]models.Player, error)
	RenamePlayer(ctx context.Context, playerID, name string) (*models.Player, error)
	DeletePlayer(ctx context.Context, playerID string) (*models.Player, error)
	ApplyAdjustment(ctx context.Context, playerID, teamID string, delta float64) (*models.Player, error)
	AddMembership(ctx context.Context, playerID, teamID string) (*models.Player, bool, error)
	ReferencedTeamIDs(ctx context.Context) ([]string, error)
	RemoveTeamMemberships(ctx context.Context, teamID string) (int64, error)
}

// UserRepository is implemented by store.UserStore and memstore.Store.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RevocationRepository is implemented by store.RevocationStore and memstore.Store.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
