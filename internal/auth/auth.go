// Package auth issues and checks the bearer tokens that bind a websocket
// connection to a user id.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
)

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrInvalidClaim = errors.New("invalid token claims")
)

const subjectClaim = "sub"

// Tokens signs user tokens with a shared HMAC secret.
// A nil *Tokens disables authentication.
type Tokens struct {
	key []byte
}

// NewTokens returns nil when secret is empty.
func NewTokens(secret string) *Tokens {
	if secret == "" {
		return nil
	}
	return &Tokens{key: []byte(secret)}
}

// Enabled reports if connections must present a token.
func (t *Tokens) Enabled() bool {
	return t != nil
}

// NewToken generates a token whose subject is userID.
func (t *Tokens) NewToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		subjectClaim: userID,
	})
	return token.SignedString(t.key)
}

// CheckToken validates a token and returns the user id it was issued to.
func (t *Tokens) CheckToken(token string) (string, error) {
	jwtToken, err := jwt.Parse(token, keyFunc(t.key))
	if err != nil {
		return "", err
	}
	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidClaim
	}
	sub, ok := claims[subjectClaim].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: no %s claim", ErrInvalidClaim, subjectClaim)
	}
	return sub, nil
}

// FromHeader extracts the token of an Authorization header value, with
// or without the Bearer scheme.
func FromHeader(value string) (string, error) {
	fields := strings.Fields(value)
	switch {
	case len(fields) == 2 && fields[0] == "Bearer":
		return fields[1], nil
	case len(fields) == 1 && fields[0] != "Bearer":
		return fields[0], nil
	}
	return "", ErrNoToken
}

func keyFunc(key []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}
}
