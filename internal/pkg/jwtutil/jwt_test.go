package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "idp", "user-1", "alice", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken("secret", "idp", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "alice", claims.Username)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken("secret", "idp", "user-1", "alice", time.Minute)
	require.NoError(t, err)
	expired, err := GenerateToken("secret", "idp", "user-1", "alice", -time.Minute)
	require.NoError(t, err)
	noSubject, err := GenerateToken("secret", "idp", "", "alice", time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]struct {
		secret, issuer, token string
	}{
		"wrong secret": {"other", "idp", valid},
		"wrong issuer": {"secret", "elsewhere", valid},
		"expired":      {"secret", "idp", expired},
		"no subject":   {"secret", "idp", noSubject},
		"no expiry":    {"secret", "", noExpiry},
		"garbage":      {"secret", "", "not-a-token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.issuer, tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseTokenIgnoresIssuerWhenUnset(t *testing.T) {
	token, err := GenerateToken("secret", "any-issuer", "user-2", "", time.Minute)
	require.NoError(t, err)
	claims, err := ParseToken("secret", "", token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.UserID())
}
