package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

const testSecret = "0123456789abcdef0123"

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier(testSecret, "issuer-test")

	token, err := v.Issue("alice", "alice@example.com", time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{AccountID: "alice", Email: "alice@example.com"}, id)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret, "issuer-test")

	expired, err := v.Issue("alice", "", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewVerifier("another-secret-value", "issuer-test").Issue("alice", "", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewVerifier(testSecret, "someone-else").Issue("alice", "", time.Hour)
	require.NoError(t, err)

	noSubject, err := v.Issue("", "", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice", "iss": "issuer-test"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated), "got %v", err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	token, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}
