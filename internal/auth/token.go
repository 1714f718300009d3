// Package auth turns session tokens into caller identities.
package auth

import (
	"errors"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity fields the messaging core needs. The subject is
// the user id.
type Claims struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() model.Identity {
	return model.Identity{
		ID:          c.Subject,
		DisplayName: c.Name,
		AvatarURL:   c.Avatar,
		Email:       c.Email,
		Username:    c.Username,
	}
}

// IssueToken signs an HS256 token for identity valid for ttl.
func IssueToken(secret []byte, identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:     identity.DisplayName,
		Email:    identity.Email,
		Username: identity.Username,
		Avatar:   identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates signature and expiry and returns the caller identity.
func ParseToken(secret []byte, tokenStr string) (model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid || !model.ValidUserID(claims.Subject) {
		return model.Identity{}, ErrInvalidToken
	}
	return claims.Identity(), nil
}
