// Package auth verifies identity tokens issued by the identity provider
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/safetyspeak/backend/internal/models"
)

// ErrInvalidToken is returned when an identity token cannot be trusted
var ErrInvalidToken = errors.New("invalid identity token")

// identityClaims are the claims carried by an identity token
type identityClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 identity tokens
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier creates a new token verifier.
//
// When "issuer" is not empty the "iss" claim must match it.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}
}

// Verify validates an identity token and returns the identity it carries
func (v *TokenVerifier) Verify(tokenString string) (*models.Identity, error) {
	claims := &identityClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is missing", ErrInvalidToken)
	}

	return &models.Identity{
		UserID:   claims.Subject,
		Name:     claims.Name,
		Email:    claims.Email,
		PhotoURL: claims.Picture,
	}, nil
}
