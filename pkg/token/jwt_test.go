package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	tokenString, err := m.GenerateToken(42, "zhangsan", "REVIEWER")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "zhangsan", claims.Username)
	assert.Equal(t, "REVIEWER", claims.Role)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)
	other := NewJWTManager("another-secret", 1, 7)

	tokenString, err := m.GenerateToken(1, "zhangsan", "OPERATOR")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}
