package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewAuthModule(nil, "test-secret")

	token, err := a.generateJWT("user-1", "home-1")
	require.NoError(t, err)

	id, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", HomeID: "home-1"}, id)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthModule(nil, "secret-a")
	verifier := NewAuthModule(nil, "secret-b")

	token, err := issuer.generateJWT("user-1", "home-1")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	a := NewAuthModule(nil, "test-secret")
	_, err := a.ValidateToken("not.a.token")
	assert.Error(t, err)
}
