package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signToken encodes the signer identity and issuance time into an
// HS256 JWT. Validity is decided against the cache record, not the
// token alone, so no exp claim is embedded.
func signToken(secret, signerID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  signerID,
		IssuedAt: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// parseToken verifies the signature and returns the signer id.
func parseToken(secret, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(
		raw,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("session: token missing subject")
	}
	return claims.Subject, nil
}
