package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conectabot/inbox/models"
)

// TokenInfo is what the daemon can read from its bearer token without the
// signing key.
type TokenInfo struct {
	Email     string
	ExpiresAt time.Time // zero when the token has no exp claim
}

// Expired reports whether the token's exp claim is in the past at now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// ParseToken reads the claims of a bearer token without verifying its
// signature. Only the backend can verify it; the daemon just needs the email.
func ParseToken(token string) (TokenInfo, error) {
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("failed to parse token: %w", err)
	}

	info := TokenInfo{Email: claims.Email}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// EmailFromToken returns the email claim of token.
func EmailFromToken(token string) (string, error) {
	info, err := ParseToken(token)
	if err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("token has no email claim")
	}
	return info.Email, nil
}
