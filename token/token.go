// Package token decodes bearer token payloads without verifying them.
//
// The session manager trusts whatever the issuing server signed; verification
// is the server's job. Decoding here only recovers the claims needed to derive
// local session validity, and it is total: any malformed input yields "no
// claims" instead of an error.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a bearer token. Only the fields the
// session manager derives state from are lifted out; Raw keeps the full
// claim set for callers that need more.
type Claims struct {
	Subject string

	// ExpiresAt is the "exp" claim in epoch seconds. HasExpiry reports
	// whether the claim was present; a token without it never authenticates
	// and never arms the expiry scheduler.
	ExpiresAt int64
	HasExpiry bool

	IssuedAt    int64
	HasIssuedAt bool

	Raw map[string]any
}

var parser = jwt.NewParser()

// Decode parses the payload segment of raw. It performs no signature or
// claims validation. The second return value is false when raw is not a
// structurally valid token; Decode never panics and never returns an error.
func Decode(raw string) (Claims, bool) {
	if raw == "" {
		return Claims{}, false
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mapClaims); err != nil {
		return Claims{}, false
	}

	c := Claims{Raw: map[string]any(mapClaims)}

	if sub, err := mapClaims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Unix()
		c.HasExpiry = true
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Unix()
		c.HasIssuedAt = true
	}

	return c, true
}

// ExpiresAtTime returns the expiry instant. ok is false when the token
// carries no expiry claim.
func (c Claims) ExpiresAtTime() (time.Time, bool) {
	if !c.HasExpiry {
		return time.Time{}, false
	}
	return time.Unix(c.ExpiresAt, 0), true
}

// Remaining reports the lifetime left at now, at millisecond precision.
// It is negative or zero for an expired token and ok is false when the
// token has no expiry claim.
func (c Claims) Remaining(now time.Time) (time.Duration, bool) {
	if !c.HasExpiry {
		return 0, false
	}
	deltaMs := c.ExpiresAt*1000 - now.UnixMilli()
	return time.Duration(deltaMs) * time.Millisecond, true
}

// Valid reports whether the token is live at now: an expiry claim exists and
// lies strictly in the future. A token expiring at exactly now is expired.
func (c Claims) Valid(now time.Time) bool {
	if !c.HasExpiry {
		return false
	}
	return c.ExpiresAt*1000 > now.UnixMilli()
}
