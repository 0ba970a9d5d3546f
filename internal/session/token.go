package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether raw is a JWT whose exp claim is at or before
// now. The signature is not checked; the API does that on every call. Tokens
// that are not JWTs, or carry no exp, never count as expired here.
func TokenExpired(raw string, now time.Time) bool {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
