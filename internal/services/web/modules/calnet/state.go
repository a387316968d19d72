package calnet

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	stateIssuer = "ocfweb-calnet"
	stateTTL    = 10 * time.Minute
)

type stateClaims struct {
	Next  string `json:"next"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// stateSigner issues and checks the HS256 state token carried through the
// provider round trip.
type stateSigner struct {
	key []byte
	now func() time.Time
}

func (s stateSigner) sign(next string, nonce string) (string, error) {
	if len(s.key) == 0 {
		return "", errors.New("state signing key is not configured")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		Next:  next,
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	})
	return token.SignedString(s.key)
}

func (s stateSigner) verify(raw string) (stateClaims, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return stateClaims{}, fmt.Errorf("verify state: %w", err)
	}
	if claims.Nonce == "" {
		return stateClaims{}, errors.New("verify state: nonce is missing")
	}
	return claims, nil
}
