package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Claims is the decoded payload of a JWT access token. Signatures are not
// verified; the backend does that.
type Claims map[string]any

// IsJWT reports whether token has three base64url parts whose first two are
// JSON objects.
func IsJWT(token string) bool {
	_, err := DecodeClaims(token)
	return err == nil
}

// DecodeClaims returns the payload of a JWT.
func DecodeClaims(token string) (Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, DefaultTokenType+" "))
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWT: expected 3 parts, got %d", len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid JWT: empty part")
		}
	}
	var header map[string]any
	if err := decodeSegment(parts[0], &header); err != nil {
		return nil, fmt.Errorf("invalid JWT header: %w", err)
	}
	var payload Claims
	if err := decodeSegment(parts[1], &payload); err != nil {
		return nil, fmt.Errorf("invalid JWT payload: %w", err)
	}
	if _, err := base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
		return nil, fmt.Errorf("invalid JWT signature: %w", err)
	}
	return payload, nil
}

func decodeSegment(s string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Subject is the "sub" claim.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// ExpiresAt is the "exp" claim, if present.
func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, ok := c["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}

// Expired reports whether the access token is a JWT whose exp lies before
// now. Opaque tokens never count as expired.
func (c Credentials) Expired(now time.Time) bool {
	claims, err := DecodeClaims(c.AccessToken)
	if err != nil {
		return false
	}
	exp, ok := claims.ExpiresAt()
	return ok && !now.Before(exp)
}
