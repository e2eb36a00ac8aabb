package fakesdb

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "fakesdb"

// Claims is the payload of the tokens the server issues. NS, DB and AC are
// set for record users.
type Claims struct {
	jwt.RegisteredClaims
	User string `json:"ID,omitempty"`
	NS   string `json:"NS,omitempty"`
	DB   string `json:"DB,omitempty"`
	AC   string `json:"AC,omitempty"`
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func (t *tokenIssuer) issue(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Issuer = issuerName
	claims.Subject = claims.User
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *tokenIssuer) verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuerName))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
