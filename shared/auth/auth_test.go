package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

func TestIssueAndParse(t *testing.T) {
	ti := NewTokenIssuer("s3cret", time.Hour)
	tok, issued, err := ti.Issue(models.User{ID: "u1", Email: "hans@example.com"})
	require.NoError(t, err)

	claims, err := ti.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UID: "u1", Email: "hans@example.com"}, claims.Identity())
	assert.Equal(t, issued.TokenID(), claims.TokenID())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiry(), 5*time.Second)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	tok, _, err := NewTokenIssuer("a", time.Hour).Issue(models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("b", time.Hour).Parse(tok)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestParseExpired(t *testing.T) {
	ti := NewTokenIssuer("s", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := ti.Issue(models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsNoneAlg(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ID:        "j",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseMissing(t *testing.T) {
	_, err := NewTokenIssuer("s", time.Hour).Parse("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse!"))
}
