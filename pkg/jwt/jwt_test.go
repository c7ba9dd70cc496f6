package jwt_test

import (
	"testing"
	"time"

	"github.com/jhoicas/farmacia-inventario/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	token, err := jwt.Generate("secreto", "u1", "t1", "pharmacist", "farmacia", time.Hour)
	require.NoError(t, err)

	claims, err := jwt.Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, "pharmacist", claims.Role)
	assert.Equal(t, "farmacia", claims.Issuer)
}

func TestParse_Errores(t *testing.T) {
	t.Run("firma con otro secreto", func(t *testing.T) {
		token, err := jwt.Generate("secreto", "u1", "t1", "admin", "farmacia", time.Hour)
		require.NoError(t, err)
		_, err = jwt.Parse("otro", token)
		assert.Error(t, err)
	})

	t.Run("token expirado", func(t *testing.T) {
		token, err := jwt.Generate("secreto", "u1", "t1", "admin", "farmacia", -time.Minute)
		require.NoError(t, err)
		_, err = jwt.Parse("secreto", token)
		assert.Error(t, err)
	})

	t.Run("sin tenant", func(t *testing.T) {
		token, err := jwt.Generate("secreto", "u1", "", "admin", "farmacia", time.Hour)
		require.NoError(t, err)
		_, err = jwt.Parse("secreto", token)
		assert.Error(t, err)
	})

	t.Run("secret vacío", func(t *testing.T) {
		_, err := jwt.Generate("", "u1", "t1", "admin", "farmacia", time.Hour)
		assert.Error(t, err)
	})
}
