// Package token inspects JWT claims without verifying signatures. The
// client trusts the provider transport; this package only reads the
// identity-bearing claims a session's tokens carry.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a raw string is not a parseable JWT.
var ErrMalformed = errors.New("malformed token")

// Claims are the claims goSession reads from an ID or access token.
type Claims struct {
	Subject    string
	Username   string
	Email      string
	GivenName  string
	FamilyName string
	Issuer     string
	TokenUse   string
	ExpiresAt  time.Time
	IssuedAt   time.Time
}

// Decode extracts claims from a compact JWT. The signature is not checked:
// this is inspection, not validation.
func Decode(raw string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := &Claims{
		Subject:    str(claims, "sub"),
		Username:   firstStr(claims, "username", "cognito:username", "preferred_username"),
		Email:      str(claims, "email"),
		GivenName:  str(claims, "given_name"),
		FamilyName: str(claims, "family_name"),
		Issuer:     str(claims, "iss"),
		TokenUse:   str(claims, "token_use"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, nil
}

// Expired reports whether the expiry has passed. A zero expiry means the
// token carried no exp claim and reports false.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ExpiresWithin reports whether the token expires inside d from now.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.Before(now.Add(d))
}

func str(m jwt.MapClaims, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstStr(m jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v := str(m, k); v != "" {
			return v
		}
	}
	return ""
}
