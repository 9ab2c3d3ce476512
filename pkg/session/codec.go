// Package session implements the signed-token core of the authentication
// layer: a codec that issues and verifies compact expiring bearer tokens, and
// an in-memory blacklist for tokens revoked before their natural expiry.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers bad signature, malformed encoding and expiry alike.
// Callers must not distinguish between those causes.
var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	UserID uint `json:"uid"`
}

// Codec signs and verifies session tokens with a process-wide secret. It is
// stateless and safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue creates an HS256 token for userID expiring after the configured TTL.
// Each token carries a unique jti so two issues for the same user differ.
func (c *Codec) Issue(userID uint) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID: userID,
	})
	return t.SignedString(c.secret)
}

// Verify validates signature and expiry and returns the embedded user id.
// Expiry is a hard boundary; no leeway is applied.
func (c *Codec) Verify(tokenString string) (uint, error) {
	cl := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	return cl.UserID, nil
}
