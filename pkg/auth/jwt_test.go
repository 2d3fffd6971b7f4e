package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTokenWithSecret(t *testing.T) {
	token, err := Issue("s3cret", Claims{UserID: "u-1", Username: "ada", Role: "teacher"}, time.Hour)
	require.NoError(t, err)

	claims, err := NewParser("s3cret").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "teacher", claims.Role)

	_, err = NewParser("other").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenUnverified(t *testing.T) {
	token, err := Issue("server-only", Claims{UserID: "u-2"}, time.Hour)
	require.NoError(t, err)

	claims, err := NewParser("").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-2", claims.UserID)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := Issue("s3cret", Claims{UserID: "u-3"}, time.Minute)
	require.NoError(t, err)

	p := NewParser("s3cret")
	p.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = p.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	p = NewParser("")
	p.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = p.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	c := Claims{}
	c.Subject = "u-4"
	token, err := Issue("s3cret", c, 0)
	require.NoError(t, err)

	claims, err := NewParser("s3cret").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-4", claims.UserID)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := NewParser("").ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewParser("s3cret").ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewParser("").ValidateToken(mustIssue(t, Claims{}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func mustIssue(t *testing.T, c Claims) string {
	t.Helper()
	token, err := Issue("x", c, time.Hour)
	require.NoError(t, err)
	return token
}
