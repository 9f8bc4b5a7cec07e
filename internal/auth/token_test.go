// ABOUTME: Tests for JWT verification
// ABOUTME: Covers round-trip, expiry, tampering, and wrong-secret rejection

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long")

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token, err := v.Generate("principal-123", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "principal-123", id)
}

func TestJWTVerifier_Expired(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	token, err := v.Generate("principal-123", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	other := NewJWTVerifier([]byte("a-completely-different-secret-key"))

	token, err := v.Generate("principal-123", time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_Garbage(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	_, err := v.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_MissingSubject(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrMissingClaim)
}
