package store

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const jwtLeeway = 30 * time.Second

// JWTSessionStore issues and validates stateless HS256 bearer tokens.
// The token subject carries the user ID; validity is bounded by the TTL.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTSessionStore builds a stateless JWT session store.
func NewJWTSessionStore(secret string, ttl time.Duration) *JWTSessionStore {
	return &JWTSessionStore{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewSession creates a signed JWT for the user ID.
func (s *JWTSessionStore) NewSession(userID string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

// ResolveToken validates a JWT and returns the subject. Any verification
// failure (bad signature, expiry, malformed token) resolves to not-found.
func (s *JWTSessionStore) ResolveToken(token string) (string, bool, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(jwtLeeway),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", false, nil
	}
	return claims.Subject, true, nil
}
