package utils // package utils provides helper functions for token creation and verification

import (
	"crypto/rand"  // secure random number generation for session IDs
	"encoding/hex" // hex encoding for session IDs
	"errors"       // sentinel errors for token verification
	"strconv"      // converting the string sub claim back to a user ID
	"time"         // expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// Token represents a signed JWT along with its expiry.  Access tokens are
// short-lived and sent in the Authorization header; refresh tokens are
// long-lived and exchanged at /api/auth/refresh.  Both are HS256 JWTs that
// share a session identifier (jti), so revoking the session invalidates the
// pair at the authorization chokepoint even before the tokens expire.
type Token struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenPair bundles the access and refresh tokens minted for one session.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// Claims is the decoded, validated content of a token.
type Claims struct {
	UserID    uint64
	Role      string
	JTI       string
	IsRefresh bool // true when the token carries type=refresh
	ExpiresAt time.Time
}

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation, including expired tokens.  Callers translate it to a 401.
var ErrInvalidToken = errors.New("invalid token")

// NewJTI returns a fresh session identifier: 16 bytes of secure random data
// hex-encoded (32 characters).
func NewJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewTokenPair mints an access token (TTL in minutes) and a refresh token
// (TTL in days) for the user, both carrying the same jti.  The subject claim
// is the decimal user ID as a string.
func NewTokenPair(secret string, userID uint64, role, jti string, accessTTLMin, refreshTTLDays int) (TokenPair, error) {
	now := time.Now().UTC()

	accessExp := now.Add(time.Duration(accessTTLMin) * time.Minute)
	access, err := sign(secret, jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  accessExp.Unix(),
	})
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(time.Duration(refreshTTLDays) * 24 * time.Hour)
	refresh, err := sign(secret, jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  refreshExp.Unix(),
		"type": "refresh",
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		Access:  Token{Token: access, Exp: accessExp},
		Refresh: Token{Token: refresh, Exp: refreshExp},
	}, nil
}

func sign(secret string, claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry of a token and returns its
// claims.  Any failure (bad signature, wrong algorithm, expired, malformed
// subject) yields ErrInvalidToken; the caller never learns which check
// failed.
func ParseToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything but HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	var out Claims

	sub, _ := mc["sub"].(string)
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || uid == 0 {
		return Claims{}, ErrInvalidToken
	}
	out.UserID = uid

	out.Role, _ = mc["role"].(string)
	out.JTI, _ = mc["jti"].(string)
	if typ, _ := mc["type"].(string); typ == "refresh" {
		out.IsRefresh = true
	}
	if exp, errExp := mc.GetExpirationTime(); errExp == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
