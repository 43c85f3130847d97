// shared/service/ledgerclient.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ftotnem/multa-tracker/shared/api"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// LedgerClient is a client for the multa-service HTTP API.
type LedgerClient struct {
	apiClient *api.Client
	dialer    *websocket.Dialer
}

// NewLedgerClient creates a client for the multa-service at baseURL. token may be empty.
func NewLedgerClient(baseURL, token string) *LedgerClient {
	c := api.NewClient(baseURL, api.NewDefaultHTTPClient())
	c.SetToken(token)
	return &LedgerClient{apiClient: c, dialer: websocket.DefaultDialer}
}

// SetToken replaces the identity token used for subsequent calls.
func (c *LedgerClient) SetToken(token string) {
	c.apiClient.SetToken(token)
}

// --- Request/Response DTOs for multa-service communication ---
// These mirror the DTOs of multa/api.

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// SignInResponse is returned by SignUp and SignIn.
type SignInResponse struct {
	Identity  models.Identity `json:"identity"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type teamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// TeamResult is the response of a team mutation.
type TeamResult struct {
	Message string       `json:"message"`
	Team    *models.Team `json:"team,omitempty"`
	Added   *bool        `json:"added,omitempty"`
}

// PlayerResult is the response of a player or ledger mutation.
type PlayerResult struct {
	Message string         `json:"message"`
	Player  *models.Player `json:"player,omitempty"`
	Added   *bool          `json:"added,omitempty"`
}

// MessageResult is the response of a mutation without a document.
type MessageResult struct {
	Message string `json:"message"`
}

func escape(id string) string {
	return url.PathEscape(id)
}

// --- Auth ---

func (c *LedgerClient) SignUp(ctx context.Context, email, password, displayName string) (*SignInResponse, error) {
	res := &SignInResponse{}
	if err := c.apiClient.Post(ctx, "/auth/signup", credentialsRequest{Email: email, Password: password, DisplayName: displayName}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) SignIn(ctx context.Context, email, password string) (*SignInResponse, error) {
	res := &SignInResponse{}
	if err := c.apiClient.Post(ctx, "/auth/signin", credentialsRequest{Email: email, Password: password}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) SignOut(ctx context.Context) error {
	return c.apiClient.Post(ctx, "/auth/signout", nil, nil)
}

func (c *LedgerClient) Me(ctx context.Context) (*models.Identity, error) {
	id := &models.Identity{}
	if err := c.apiClient.Get(ctx, "/auth/me", id); err != nil {
		return nil, err
	}
	return id, nil
}

// --- Teams ---

func (c *LedgerClient) ListTeams(ctx context.Context) ([]models.Team, error) {
	var res struct {
		Teams []models.Team `json:"teams"`
	}
	if err := c.apiClient.Get(ctx, "/teams", &res); err != nil {
		return nil, err
	}
	return res.Teams, nil
}

func (c *LedgerClient) CreateTeam(ctx context.Context, name, color string) (*TeamResult, error) {
	res := &TeamResult{}
	if err := c.apiClient.Post(ctx, "/teams", teamRequest{Name: name, Color: color}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) UpdateTeam(ctx context.Context, teamID, name, color string) (*TeamResult, error) {
	res := &TeamResult{}
	if err := c.apiClient.Put(ctx, "/teams/"+escape(teamID), teamRequest{Name: name, Color: color}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) DeleteTeam(ctx context.Context, teamID string) (*MessageResult, error) {
	res := &MessageResult{}
	if err := c.apiClient.Delete(ctx, "/teams/"+escape(teamID), res); err != nil {
		return nil, err
	}
	return res, nil
}

// AddTeamAdmin grants admin rights to a uid or the email of a registered user.
func (c *LedgerClient) AddTeamAdmin(ctx context.Context, teamID, admin string) (*TeamResult, error) {
	res := &TeamResult{}
	body := map[string]string{"admin": admin}
	if err := c.apiClient.Post(ctx, "/teams/"+escape(teamID)+"/admins", body, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) Roster(ctx context.Context, teamID string) (*models.RosterSnapshot, error) {
	snap := &models.RosterSnapshot{}
	if err := c.apiClient.Get(ctx, "/teams/"+escape(teamID)+"/roster", snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// --- Players and ledger ---

func (c *LedgerClient) CreatePlayer(ctx context.Context, teamID, name string) (*PlayerResult, error) {
	res := &PlayerResult{}
	if err := c.apiClient.Post(ctx, "/teams/"+escape(teamID)+"/players", nameRequest{Name: name}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) AddMembership(ctx context.Context, teamID, playerID string) (*PlayerResult, error) {
	res := &PlayerResult{}
	body := map[string]string{"playerId": playerID}
	if err := c.apiClient.Post(ctx, "/teams/"+escape(teamID)+"/members", body, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AddMulta records a penalty. amount is passed as typed, "2,50" is accepted.
func (c *LedgerClient) AddMulta(ctx context.Context, teamID, playerID, amount string) (*PlayerResult, error) {
	return c.adjust(ctx, teamID, playerID, "multa", amount)
}

// PayMulta records a payment.
func (c *LedgerClient) PayMulta(ctx context.Context, teamID, playerID, amount string) (*PlayerResult, error) {
	return c.adjust(ctx, teamID, playerID, "payments", amount)
}

func (c *LedgerClient) adjust(ctx context.Context, teamID, playerID, kind, amount string) (*PlayerResult, error) {
	res := &PlayerResult{}
	path := fmt.Sprintf("/teams/%s/players/%s/%s", escape(teamID), escape(playerID), kind)
	if err := c.apiClient.Post(ctx, path, amountRequest{Amount: amount}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	p := &models.Player{}
	if err := c.apiClient.Get(ctx, "/players/"+escape(playerID), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *LedgerClient) RenamePlayer(ctx context.Context, playerID, name string) (*PlayerResult, error) {
	res := &PlayerResult{}
	if err := c.apiClient.Put(ctx, "/players/"+escape(playerID), nameRequest{Name: name}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *LedgerClient) DeletePlayer(ctx context.Context, playerID string) (*MessageResult, error) {
	res := &MessageResult{}
	if err := c.apiClient.Delete(ctx, "/players/"+escape(playerID), res); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Live ---

// WatchRoster streams roster snapshots of a team until ctx ends, onSnapshot
// returns an error or the server closes the stream.
func (c *LedgerClient) WatchRoster(ctx context.Context, teamID string, onSnapshot func(models.RosterSnapshot) error) error {
	wsURL, err := toWebsocketURL(c.apiClient.BaseURL() + "/teams/" + escape(teamID) + "/roster/live")
	if err != nil {
		return err
	}
	header := http.Header{}
	if token := c.apiClient.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return fmt.Errorf("failed to open live roster: %w", &api.HTTPError{StatusCode: resp.StatusCode, URL: wsURL, Method: http.MethodGet})
		}
		return fmt.Errorf("failed to open live roster: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var snap models.RosterSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("live roster ended: %w", err)
		}
		if err := onSnapshot(snap); err != nil {
			return err
		}
	}
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	return u.String(), nil
}
