package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the payload of the ConectaBot bearer token.
//
// The daemon does not hold the signing key, so the token is parsed without
// verification; only the backend validates it. Email identifies the caller in
// backend URLs.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
