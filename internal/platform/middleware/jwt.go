package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator validates HMAC-signed terminal tokens issued by the
// back-office system.
type JWTValidator struct {
	signingKey []byte
}

// NewJWTValidator constructs a validator sharing the issuer's signing key.
func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type terminalTokenClaims struct {
	TerminalID string `json:"terminal_id"`
	CashierID  string `json:"cashier_id"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a terminal token, rejecting unexpected
// signing methods and expired tokens.
func (v *JWTValidator) ValidateToken(tokenString string) (*TerminalClaims, error) {
	claims := &terminalTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	if claims.TerminalID == "" {
		return nil, fmt.Errorf("token missing terminal_id claim")
	}

	return &TerminalClaims{
		TerminalID: claims.TerminalID,
		CashierID:  claims.CashierID,
	}, nil
}
