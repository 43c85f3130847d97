// multa/api/live.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/service"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxClientMessage = 512
)

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// subscribeFunc starts a live query that pushes every snapshot through send.
type subscribeFunc func(ctx context.Context, send func(v any) error) (*service.Subscription, error)

// LiveRosterHandler streams roster snapshots of one team over a websocket.
// GET /teams/{teamId}/roster/live
func (h *Handler) LiveRosterHandler(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["teamId"]
	sess := h.session(r)

	// Access is checked before the upgrade so a refusal still gets an HTTP status.
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	_, err := h.roster.Roster(ctx, sess.UID, teamID)
	cancel()
	if err != nil {
		h.writeServiceError(w, r, err, MsgReadFailed)
		return
	}

	h.serveLive(w, r, func(ctx context.Context, send func(v any) error) (*service.Subscription, error) {
		return h.roster.SubscribeRoster(ctx, sess, teamID, func(s models.RosterSnapshot) error {
			return send(s)
		})
	})
}

// LiveTeamsHandler streams the caller's team list over a websocket.
// GET /teams/live
func (h *Handler) LiveTeamsHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	h.serveLive(w, r, func(ctx context.Context, send func(v any) error) (*service.Subscription, error) {
		return h.roster.SubscribeTeams(ctx, sess, func(s models.TeamsSnapshot) error {
			return send(s)
		})
	})
}

// serveLive upgrades the connection and keeps it open until the client leaves,
// the subscription ends or the service shuts down.
func (h *Handler) serveLive(w http.ResponseWriter, r *http.Request, subscribe subscribeFunc) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopOnShutdown := context.AfterFunc(h.base, cancel)
	defer stopOnShutdown()

	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients never send data; reading only drives control frames and notices a close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	sub, err := subscribe(ctx, send)
	if err != nil {
		h.closeLive(conn, err)
		return
	}
	defer sub.Unsubscribe()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-sub.Done():
			h.closeLive(conn, sub.Err())
			return
		case <-ctx.Done():
			sub.Unsubscribe()
			h.closeLive(conn, nil)
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// closeLive sends a close frame describing why the stream ended.
func (h *Handler) closeLive(conn *websocket.Conn, err error) {
	code, text := websocket.CloseNormalClosure, "subscription ended"
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnauthorized):
		code, text = websocket.ClosePolicyViolation, "session ended"
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrTeamNotFound):
		code, text = websocket.ClosePolicyViolation, "access denied"
	default:
		h.logger.Warn("live subscription failed", zap.Error(err))
		code, text = websocket.CloseInternalServerErr, "live query failed"
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
