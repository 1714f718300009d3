package auth

import (
	"testing"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestIssueAndParse(t *testing.T) {
	id := model.Identity{ID: "u1", DisplayName: "Ada", AvatarURL: "ada.png", Email: "ada@example.com", Username: "ada"}
	tok, err := IssueToken(secret, id, time.Minute)
	require.NoError(t, err)

	got, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseRejects(t *testing.T) {
	id := model.Identity{ID: "u1"}

	expired, err := IssueToken(secret, id, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := IssueToken([]byte("other"), id, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Name: "x"}).SignedString(secret)
	require.NoError(t, err)
	_, err = ParseToken(secret, noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken(secret, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	colon, err := IssueToken(secret, model.Identity{ID: "a:b"}, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, colon)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
