package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/ragchat-be/types"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	claims := types.IdentityClaims{
		Subject: "user-1",
		Name:    "Alice",
		Email:   "alice@example.com",
		Picture: "https://example.com/a.png",
	}
	token, err := GenerateIdentityToken("secret", claims, time.Minute)
	require.NoError(t, err)

	parsed, err := ParseIdentityToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, &claims, parsed)
}

func TestParseIdentityTokenWrongSecret(t *testing.T) {
	token, err := GenerateIdentityToken("secret", types.IdentityClaims{Subject: "user-1"}, time.Minute)
	require.NoError(t, err)

	_, err = ParseIdentityToken("other", token)
	assert.Error(t, err)
}

func TestParseIdentityTokenExpired(t *testing.T) {
	token, err := GenerateIdentityToken("secret", types.IdentityClaims{Subject: "user-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseIdentityToken("secret", token)
	assert.Error(t, err)
}

func TestParseIdentityTokenMissingSubject(t *testing.T) {
	token, err := GenerateIdentityToken("secret", types.IdentityClaims{Email: "a@b.c"}, time.Minute)
	require.NoError(t, err)

	_, err = ParseIdentityToken("secret", token)
	assert.Error(t, err)
}

func TestParseIdentityTokenGarbage(t *testing.T) {
	_, err := ParseIdentityToken("secret", "not-a-token")
	assert.Error(t, err)
}
