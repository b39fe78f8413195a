// Package token inspects the opaque bearer credential the backend issues.
// The client never verifies signatures (that is the server's job); it only
// reads the expiry claim so the session can report token lifetime.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry returns the exp claim of a JWT without verifying its signature.
// Tokens that are not JWTs, or carry no exp claim, yield the zero time.
func Expiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without a readable expiry are never considered expired client-side.
func Expired(raw string, now time.Time) bool {
	exp := Expiry(raw)
	return !exp.IsZero() && now.After(exp)
}
