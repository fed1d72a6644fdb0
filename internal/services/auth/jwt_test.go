package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", MinSecretLength))

func TestNewJWTManager_RejectsWeakConfig(t *testing.T) {
	_, err := NewJWTManager([]byte("short"), "subscription-tracker", time.Hour)
	assert.Error(t, err)

	_, err = NewJWTManager(testSecret, "subscription-tracker", 0)
	assert.Error(t, err)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	jm, err := NewJWTManager(testSecret, "subscription-tracker", time.Hour)
	require.NoError(t, err)

	token, err := jm.GenerateToken("user-1", "alice", true)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Admin)
	assert.Equal(t, "subscription-tracker", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManager_Expired(t *testing.T) {
	jm, err := NewJWTManager(testSecret, "subscription-tracker", time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	jm.now = func() time.Time { return issued }
	token, err := jm.GenerateToken("user-1", "alice", false)
	require.NoError(t, err)

	jm.now = time.Now
	_, err = jm.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	signer, err := NewJWTManager(testSecret, "subscription-tracker", time.Hour)
	require.NoError(t, err)
	verifier, err := NewJWTManager([]byte(strings.Repeat("x", MinSecretLength)), "subscription-tracker", time.Hour)
	require.NoError(t, err)

	token, err := signer.GenerateToken("user-1", "alice", false)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTManager_WrongIssuer(t *testing.T) {
	signer, _ := NewJWTManager(testSecret, "someone-else", time.Hour)
	verifier, _ := NewJWTManager(testSecret, "subscription-tracker", time.Hour)

	token, err := signer.GenerateToken("user-1", "alice", false)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	jm, _ := NewJWTManager(testSecret, "subscription-tracker", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    "subscription-tracker",
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jm.ValidateToken(token)
	assert.Error(t, err)
}
