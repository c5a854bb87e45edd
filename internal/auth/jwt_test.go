package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("owner1", secret, time.Hour)
	require.NoError(t, err)

	owner, err := OwnerIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "owner1", owner)
}

func TestParse_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("owner1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = OwnerIDFromToken(token, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecretAndGarbage(t *testing.T) {
	token, err := GenerateToken("owner1", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = OwnerIDFromToken(token, []byte("secret-b"))
	require.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = OwnerIDFromToken("not.a.token", []byte("secret-a"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
