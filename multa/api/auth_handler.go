// multa/api/auth_handler.go
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Ftotnem/multa-tracker/multa/service"
	sharedapi "github.com/Ftotnem/multa-tracker/shared/api"
	"github.com/Ftotnem/multa-tracker/shared/auth"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

type callerKey struct{}

// caller is the authenticated identity attached to a request.
type caller struct {
	Identity models.Identity
	Claims   *auth.Claims
	Token    string
}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

// bearerToken reads the Authorization header. Websocket handshakes may pass the
// token as access_token because browsers cannot set headers on them.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// authMiddleware rejects requests without a valid, unrevoked token.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			sharedapi.WriteUnauthorized(w, MsgAuthRequired)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		id, claims, err := h.auth.CurrentIdentity(ctx, token)
		cancel()
		if err != nil {
			h.writeServiceError(w, r, err, MsgAuthRequired)
			return
		}
		ctx = context.WithValue(r.Context(), callerKey{}, caller{Identity: id, Claims: claims, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpHandler creates an account.
// POST /auth/signup
func (h *Handler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgInvalidRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.auth.SignUp(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeServiceError(w, r, err, MsgSignUpFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusCreated, res)
}

// SignInHandler exchanges credentials for a token.
// POST /auth/signin
func (h *Handler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := sharedapi.DecodeJSON(r, &req); err != nil {
		sharedapi.WriteBadRequest(w, MsgInvalidRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, MsgSignInFailed)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, res)
}

// SignOutHandler revokes the caller's token.
// POST /auth/signout
func (h *Handler) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.auth.SignOut(ctx, callerFrom(r.Context()).Token); err != nil {
		h.writeServiceError(w, r, err, MsgAuthRequired)
		return
	}
	sharedapi.WriteJSON(w, http.StatusOK, MessageResponse{Message: MsgSignedOut})
}

// MeHandler returns the caller's identity.
// GET /auth/me
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	sharedapi.WriteJSON(w, http.StatusOK, callerFrom(r.Context()).Identity)
}

// session builds the live-subscription session of the caller.
func (h *Handler) session(r *http.Request) service.Session {
	c := callerFrom(r.Context())
	return h.auth.Session(c.Token, c.Claims)
}
