// multa/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/multa/store"
	"github.com/Ftotnem/multa-tracker/shared/auth"
	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/models"
)

// SignInResult is returned by SignUp and SignIn.
type SignInResult struct {
	Identity  models.Identity `json:"identity"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// AuthService owns user accounts and identity tokens.
type AuthService struct {
	users   UserRepository
	revoked RevocationRepository
	issuer  *auth.TokenIssuer
	logger  *zap.Logger
}

func NewAuthService(users UserRepository, revoked RevocationRepository, issuer *auth.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		revoked: revoked,
		issuer:  issuer,
		logger:  logger.Named("auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account and signs the new user in.
func (as *AuthService) SignUp(ctx context.Context, email, password, displayName string) (*SignInResult, error) {
	email = normalizeEmail(email)
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return nil, validationErr("email address is invalid")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, validationErr("%v", err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if displayName != "" {
		if displayName, err = ledger.CleanName(displayName); err != nil {
			return nil, validationErr("display name: %v", err)
		}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    &now,
	}
	if err := as.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeErr(err, ErrUserNotFound)
	}
	as.logger.Info("user signed up", zap.String("uid", user.ID))
	return as.issue(*user)
}

// SignIn checks the credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (as *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	user, err := as.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err, ErrUserNotFound)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		as.logger.Info("sign-in rejected", zap.String("uid", user.ID))
		return nil, ErrInvalidCredentials
	}
	return as.issue(*user)
}

func (as *AuthService) issue(user models.User) (*SignInResult, error) {
	token, claims, err := as.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Identity: claims.Identity(), Token: token, ExpiresAt: claims.Expiry()}, nil
}

// SignOut revokes the token until it would have expired.
func (as *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := as.verify(ctx, token)
	if err != nil {
		return err
	}
	if err := as.revoked.Revoke(ctx, claims.TokenID(), claims.Expiry()); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteRejected, err)
	}
	as.logger.Info("user signed out", zap.String("uid", claims.Subject))
	return nil
}

// CurrentIdentity resolves a token to the caller. Expired, forged and revoked
// tokens are ErrUnauthorized.
func (as *AuthService) CurrentIdentity(ctx context.Context, token string) (models.Identity, *auth.Claims, error) {
	claims, err := as.verify(ctx, token)
	if err != nil {
		return models.Identity{}, nil, err
	}
	return claims.Identity(), claims, nil
}

func (as *AuthService) verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := as.issuer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	revoked, err := as.revoked.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		// Fail closed.
		as.logger.Error("revocation check failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}
	return claims, nil
}

// Session builds the live-subscription session for a verified token: it ends at
// token expiry and whenever the token is revoked.
func (as *AuthService) Session(token string, claims *auth.Claims) Session {
	return Session{
		UID:     claims.Subject,
		Expires: claims.Expiry(),
		Check: func(ctx context.Context) error {
			_, err := as.verify(ctx, token)
			return err
		},
	}
}
