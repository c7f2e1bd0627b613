package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJWT(payload string) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + enc([]byte(payload)) + "." + enc([]byte("sig"))
}

func TestDecodeClaims(t *testing.T) {
	tok := makeJWT(`{"sub":"ops@fleet.example","exp":1735689600}`)
	require.True(t, IsJWT(tok))
	require.True(t, IsJWT("Bearer "+tok))

	c, err := DecodeClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@fleet.example", c.Subject())
	exp, ok := c.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), exp.UTC())
}

func TestDecodeClaimsRejects(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"opaque", "abc123", "expected 3 parts"},
		{"empty part", "a..b", "empty part"},
		{"bad header", "!!!.e30.c2ln", "invalid JWT header"},
		{"payload not json", base64.RawURLEncoding.EncodeToString([]byte("{}")) + "." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c2ln", "invalid JWT payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClaims(tt.token)
			assert.ErrorContains(t, err, tt.want)
			assert.False(t, IsJWT(tt.token))
		})
	}
}

func TestCredentialsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := Credentials{AccessToken: makeJWT(`{"exp":1735689600}`)}
	future := Credentials{AccessToken: makeJWT(`{"exp":4102444800}`)}
	noExp := Credentials{AccessToken: makeJWT(`{"sub":"x"}`)}

	assert.True(t, past.Expired(now))
	assert.False(t, future.Expired(now))
	assert.False(t, noExp.Expired(now))
	assert.False(t, Credentials{AccessToken: "opaque"}.Expired(now))
}
