package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return signed
}

func TestDecodeIdentityClaims(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw := mint(t, jwt.MapClaims{
		"sub":         "u-123",
		"email":       "alice@example.com",
		"given_name":  "Alice",
		"family_name": "Liddell",
		"username":    "alice",
		"iss":         "https://issuer.example.com/pool",
		"token_use":   "id",
		"exp":         now.Add(time.Hour).Unix(),
		"iat":         now.Unix(),
	})

	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Subject != "u-123" {
		t.Errorf("Subject = %q", c.Subject)
	}
	if c.Email != "alice@example.com" {
		t.Errorf("Email = %q", c.Email)
	}
	if c.GivenName != "Alice" || c.FamilyName != "Liddell" {
		t.Errorf("names = %q %q", c.GivenName, c.FamilyName)
	}
	if c.Username != "alice" {
		t.Errorf("Username = %q", c.Username)
	}
	if c.TokenUse != "id" {
		t.Errorf("TokenUse = %q", c.TokenUse)
	}
	if !c.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, now.Add(time.Hour))
	}
	if !c.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", c.IssuedAt, now)
	}
}

func TestDecodeUsernameFallbacks(t *testing.T) {
	raw := mint(t, jwt.MapClaims{"cognito:username": "alice-pool"})
	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Username != "alice-pool" {
		t.Errorf("Username = %q, want cognito:username fallback", c.Username)
	}

	raw = mint(t, jwt.MapClaims{"preferred_username": "al"})
	c, err = Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Username != "al" {
		t.Errorf("Username = %q, want preferred_username fallback", c.Username)
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	// Decode must accept a token signed with an unknown key; it inspects,
	// it does not validate.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-9"}).
		SignedString([]byte("a-key-nobody-shares"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	c, err := Decode(signed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Subject != "u-9" {
		t.Errorf("Subject = %q", c.Subject)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b", "x.y.z"} {
		if _, err := Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestDecodeNonStringClaims(t *testing.T) {
	raw := mint(t, jwt.MapClaims{
		"sub":   12345,
		"email": true,
	})

	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Subject != "" || c.Email != "" {
		t.Errorf("non-string claims must decode empty, got %q %q", c.Subject, c.Email)
	}
}

func TestExpiryHelpers(t *testing.T) {
	now := time.Now()

	c := &Claims{ExpiresAt: now.Add(10 * time.Minute)}
	if c.Expired(now) {
		t.Error("future expiry must not be expired")
	}
	if !c.Expired(now.Add(11 * time.Minute)) {
		t.Error("past expiry must be expired")
	}
	if !c.ExpiresWithin(now, 15*time.Minute) {
		t.Error("expiry inside window must report true")
	}
	if c.ExpiresWithin(now, 5*time.Minute) {
		t.Error("expiry outside window must report false")
	}

	noExp := &Claims{}
	if noExp.Expired(now) || noExp.ExpiresWithin(now, time.Hour) {
		t.Error("missing exp claim must never report expired")
	}
}
