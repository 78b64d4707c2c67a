package utils_test

import (
	"autonomeal/utils"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateToken(t *testing.T) {
	first, err := utils.GenerateToken(utils.SessionTokenBytes)
	require.NoError(t, err)
	second, err := utils.GenerateToken(utils.SessionTokenBytes)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	raw, err := base64.URLEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, utils.SessionTokenBytes)
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := utils.HashPassword("Secret1!", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := utils.HashPassword("Secret1!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same password must not produce the same hash")
	assert.True(t, utils.CheckPasswordHash("Secret1!", first))
	assert.True(t, utils.CheckPasswordHash("Secret1!", second))
	assert.False(t, utils.CheckPasswordHash("secret1!", first))
}

func TestDummyPasswordHashNeverMatchesUserInput(t *testing.T) {
	hash := utils.DummyPasswordHash(bcrypt.MinCost)
	require.NotEmpty(t, hash)

	assert.False(t, utils.CheckPasswordHash("Secret1!", hash))
	assert.False(t, utils.CheckPasswordHash("", hash))
}
