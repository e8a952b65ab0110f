package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, err := GenerateToken(secret, 1, "admin", model.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)

	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID, "JTI should be set")
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret1", 1, "admin", model.RoleAdmin)
	require.NoError(t, err)

	_, err = ValidateToken("secret2", token)
	assert.Error(t, err)
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	token, err := GenerateToken(secret, 1, "test", model.RoleMember)
	require.NoError(t, err)
	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)

	diff := time.Until(claims.ExpiresAt.Time) - TokenExpiry
	assert.InDelta(t, 0, diff.Seconds(), 5, "token expiry too far from expected")
}
