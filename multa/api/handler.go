// multa/api/handler.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/service"
	sharedapi "github.com/Ftotnem/multa-tracker/shared/api"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// Services bundles the business logic the HTTP layer talks to.
type Services struct {
	Teams   *service.TeamService
	Players *service.PlayerService
	Ledger  *service.LedgerService
	Roster  *service.RosterService
	Auth    *service.AuthService
}

// Options tune the HTTP layer.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	// Health reports whether the backing store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Handler serves the multa-service HTTP API.
type Handler struct {
	teams   *service.TeamService
	players *service.PlayerService
	ledger  *service.LedgerService
	roster  *service.RosterService
	auth    *service.AuthService

	// base ends every live connection when cancelled.
	base     context.Context
	timeout  time.Duration
	health   func(ctx context.Context) error
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler is the constructor for the API handlers.
func NewHandler(base context.Context, svc Services, opts Options, logger *zap.Logger) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	return &Handler{
		teams:    svc.Teams,
		players:  svc.Players,
		ledger:   svc.Ledger,
		roster:   svc.Roster,
		auth:     svc.Auth,
		base:     base,
		timeout:  opts.RequestTimeout,
		health:   opts.Health,
		upgrader: newUpgrader(opts.AllowedOrigins),
		logger:   logger.Named("api"),
	}
}

// --- Request/Response DTOs ---

type TeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type AddAdminRequest struct {
	// Admin is a uid or the email of a registered user.
	Admin string `json:"admin"`
}

type PlayerRequest struct {
	Name string `json:"name"`
}

type MembershipRequest struct {
	PlayerID string `json:"playerId"`
}

// AmountRequest accepts the amount as a JSON number or as the text a user typed ("2,50").
type AmountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TeamResponse struct {
	Message string       `json:"message"`
	Team    *models.Team `json:"team,omitempty"`
	Added   *bool        `json:"added,omitempty"`
}

type PlayerResponse struct {
	Message string         `json:"message"`
	Player  *models.Player `json:"player,omitempty"`
	Added   *bool          `json:"added,omitempty"`
}

type TeamsResponse struct {
	Teams []models.Team `json:"teams"`
}

// parseAmount reads an AmountRequest value.
func parseAmount(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ledger.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
		}
		return ledger.ParseAmount(text)
	}
	return ledger.ParseAmount(string(raw))
}

func boolPtr(b bool) *bool { return &b }

// --- Team handlers ---

// ListTeamsHandler lists the teams the caller administers.
// GET /teams
func (h *Handler) ListTeamsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	teams, err := h.teams.ListTeams(ctx, callerFrom(r.Context()).Identity.UID)
	if err != nil {
		h.writeServiceError(w, r, err, MsgReadFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, TeamsResponse{Teams: teams})
}

// CreateTeamHandler creates a team administered by the caller.
// POST /teams
func (h *Handler) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgTeamNotAdded)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	team, err := h.teams.CreateTeam(ctx, callerFrom(r.Context()).Identity.UID, req.Name, req.Color)
	if err != nil {
		h.writeServiceError(w, r, err, MsgTeamNotAdded)
		return
	}
	sharedapi.WriteJSON(w, http.StatusCreated, TeamResponse{Message: MsgTeamAdded, Team: team})
}

// GetTeamHandler returns one team.
// GET /teams/{teamId}
func (h *Handler) GetTeamHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	team, err := h.teams.GetTeam(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"])
	if err != nil {
		h.writeServiceError(w, r, err, MsgReadFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, team)
}

// UpdateTeamHandler changes name and color of a team.
// PUT /teams/{teamId}
func (h *Handler) UpdateTeamHandler(w http.ResponseWriter, r *http.Request) {
	var req TeamRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgTeamNotUpdated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	team, err := h.teams.UpdateTeam(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"], req.Name, req.Color)
	if err != nil {
		h.writeServiceError(w, r, err, MsgTeamNotUpdated)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, TeamResponse{Message: MsgTeamUpdated, Team: team})
}

// DeleteTeamHandler removes a team. Player memberships are cleaned up later by the sweeper.
// DELETE /teams/{teamId}
func (h *Handler) DeleteTeamHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.teams.DeleteTeam(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"]); err != nil {
		h.writeServiceError(w, r, err, MsgTeamNotDeleted)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, MessageResponse{Message: MsgTeamDeleted})
}

// AddTeamAdminHandler grants another user admin rights on a team.
// POST /teams/{teamId}/admins
func (h *Handler) AddTeamAdminHandler(w http.ResponseWriter, r *http.Request) {
	var req AddAdminRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgTeamNotUpdated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	team, added, err := h.teams.AddTeamAdmin(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"], req.Admin)
	if err != nil {
		h.writeServiceError(w, r, err, MsgTeamNotUpdated)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, TeamResponse{Message: MsgTeamUpdated, Team: team, Added: boolPtr(added)})
}

// RosterHandler returns the current roster of a team.
// GET /teams/{teamId}/roster
func (h *Handler) RosterHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap, err := h.roster.Roster(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"])
	if err != nil {
		h.writeServiceError(w, r, err, MsgReadFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, snap)
}

// --- Player handlers ---

// CreatePlayerHandler creates a player who is a member of the team.
// POST /teams/{teamId}/players
func (h *Handler) CreatePlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgPlayerNotAdded)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	player, err := h.players.CreatePlayer(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"], req.Name)
	if err != nil {
		h.writeServiceError(w, r, err, MsgPlayerNotAdded)
		return
	}
	sharedapi.WriteJSON(w, http.StatusCreated, PlayerResponse{Message: MsgPlayerAdded, Player: player})
}

// AddMembershipHandler adds an existing player to the team.
// POST /teams/{teamId}/members
func (h *Handler) AddMembershipHandler(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgPlayerNotAdded)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	player, added, err := h.ledger.AddMembership(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["teamId"], req.PlayerID)
	if err != nil {
		h.writeServiceError(w, r, err, MsgPlayerNotAdded)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, PlayerResponse{Message: MsgPlayerAdded, Player: player, Added: boolPtr(added)})
}

// AddMultaHandler records a penalty.
// POST /teams/{teamId}/players/{playerId}/multa
func (h *Handler) AddMultaHandler(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.AddMulta, MsgMultaAdded, MsgMultaNotAdded)
}

// PayMultaHandler records a payment.
// POST /teams/{teamId}/players/{playerId}/payments
func (h *Handler) PayMultaHandler(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.PayMulta, MsgMultaPaid, MsgMultaNotPaid)
}

type adjustFunc func(ctx context.Context, uid, teamID, playerID string, amount float64) (*models.Player, error)

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, apply adjustFunc, success, failure string) {
	var req AmountRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, failure)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		sharedapi.WriteJSON(w, http.StatusBadRequest, sharedapi.JSONErrorResponse{
			Message: failure,
			Code:    http.StatusBadRequest,
			Details: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	vars := mux.Vars(r)
	player, err := apply(ctx, callerFrom(r.Context()).Identity.UID, vars["teamId"], vars["playerId"], amount)
	if err != nil {
		h.writeServiceError(w, r, err, failure)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, PlayerResponse{Message: success, Player: player})
}

// GetPlayerHandler returns a player, limited to the teams the caller administers.
// GET /players/{playerId}
func (h *Handler) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	player, err := h.players.GetPlayer(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["playerId"])
	if err != nil {
		h.writeServiceError(w, r, err, MsgReadFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, player)
}

// RenamePlayerHandler changes a player's name.
// PUT /players/{playerId}
func (h *Handler) RenamePlayerHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgPlayerNotUpdated)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	player, err := h.players.RenamePlayer(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["playerId"], req.Name)
	if err != nil {
		h.writeServiceError(w, r, err, MsgPlayerNotUpdated)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, PlayerResponse{Message: MsgPlayerUpdated, Player: player})
}

// DeletePlayerHandler removes a player.
// DELETE /players/{playerId}
func (h *Handler) DeletePlayerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.players.DeletePlayer(ctx, callerFrom(r.Context()).Identity.UID, mux.Vars(r)["playerId"]); err != nil {
		h.writeServiceError(w, r, err, MsgPlayerNotDeleted)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, MessageResponse{Message: MsgPlayerDeleted})
}

// HealthHandler reports liveness of the service and its store.
// GET /healthz
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			sharedapi.WriteError(w, http.StatusServiceUnavailable, MsgServiceNotHealthy)
			return
		}
	}
	sharedapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers all API endpoints for the multa-service.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.HealthHandler).Methods("GET")
	router.HandleFunc("/auth/signup", h.SignUpHandler).Methods("POST")
	router.HandleFunc("/auth/signin", h.SignInHandler).Methods("POST")

	authed := router.NewRoute().Subrouter()
	authed.Use(h.authMiddleware)

	authed.HandleFunc("/auth/signout", h.SignOutHandler).Methods("POST")
	authed.HandleFunc("/auth/me", h.MeHandler).Methods("GET")

	authed.HandleFunc("/teams", h.ListTeamsHandler).Methods("GET")
	authed.HandleFunc("/teams", h.CreateTeamHandler).Methods("POST")
	authed.HandleFunc("/teams/live", h.LiveTeamsHandler).Methods("GET")
	authed.HandleFunc("/teams/{teamId}", h.GetTeamHandler).Methods("GET")
	authed.HandleFunc("/teams/{teamId}", h.UpdateTeamHandler).Methods("PUT")
	authed.HandleFunc("/teams/{teamId}", h.DeleteTeamHandler).Methods("DELETE")
	authed.HandleFunc("/teams/{teamId}/admins", h.AddTeamAdminHandler).Methods("POST")
	authed.HandleFunc("/teams/{teamId}/roster", h.RosterHandler).Methods("GET")
	authed.HandleFunc("/teams/{teamId}/roster/live", h.LiveRosterHandler).Methods("GET")
	authed.HandleFunc("/teams/{teamId}/players", h.CreatePlayerHandler).Methods("POST")
	authed.HandleFunc("/teams/{teamId}/members", h.AddMembershipHandler).Methods("POST")
	authed.HandleFunc("/teams/{teamId}/players/{playerId}/multa", h.AddMultaHandler).Methods("POST")
	authed.HandleFunc("/teams/{teamId}/players/{playerId}/payments", h.PayMultaHandler).Methods("POST")

	authed.HandleFunc("/players/{playerId}", h.GetPlayerHandler).Methods("GET")
	authed.HandleFunc("/players/{playerId}", h.RenamePlayerHandler).Methods("PUT")
	authed.HandleFunc("/players/{playerId}", h.DeletePlayerHandler).Methods("DELETE")
}
