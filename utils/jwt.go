package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tieubaoca/ragchat-be/types"
)

type identityTokenClaims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// GenerateIdentityToken signs an identity token the way the external
// provider would. Used by tooling and tests.
func GenerateIdentityToken(secret string, claims types.IdentityClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	tokenClaims := identityTokenClaims{
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	return token.SignedString([]byte(secret))
}

// ParseIdentityToken verifies the signature and expiry and returns the
// provider's claims about the subject.
func ParseIdentityToken(secret, tokenString string) (*types.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &identityTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*identityTokenClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}
	return &types.IdentityClaims{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}
