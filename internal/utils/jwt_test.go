package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestNewJTI(t *testing.T) {
	a, err := NewJTI()
	if err != nil {
		t.Fatalf("NewJTI: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("jti length = %d, want 32", len(a))
	}
	b, err := NewJTI()
	if err != nil {
		t.Fatalf("NewJTI: %v", err)
	}
	if a == b {
		t.Fatal("two jtis are identical")
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	jti, _ := NewJTI()
	pair, err := NewTokenPair(testSecret, 42, "admin", jti, 15, 7)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}

	access, err := ParseToken(testSecret, pair.Access.Token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if access.UserID != 42 || access.Role != "admin" || access.JTI != jti {
		t.Fatalf("access claims = %+v", access)
	}
	if access.IsRefresh {
		t.Fatal("access token flagged as refresh")
	}

	refresh, err := ParseToken(testSecret, pair.Refresh.Token)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if !refresh.IsRefresh {
		t.Fatal("refresh token not flagged as refresh")
	}
	if refresh.JTI != access.JTI {
		t.Fatalf("jti mismatch: access %q refresh %q", access.JTI, refresh.JTI)
	}
	if !refresh.ExpiresAt.After(access.ExpiresAt) {
		t.Fatal("refresh should outlive access")
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	jti, _ := NewJTI()
	pair, err := NewTokenPair(testSecret, 1, "user", jti, 15, 7)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}
	if _, err := ParseToken("other-secret", pair.Access.Token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"jti": "abc",
		"exp": time.Now().UTC().Add(-time.Minute).Unix(),
	})
	raw, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(testSecret, raw); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenRejectsNonHMAC(t *testing.T) {
	// alg=none style tokens must never validate.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1",
		"jti": "abc",
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(testSecret, raw); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenGarbageSubject(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-a-number",
		"jti": "abc",
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(testSecret, raw); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
