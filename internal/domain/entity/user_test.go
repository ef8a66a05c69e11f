package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_PasswordHashing(t *testing.T) {
	user := &User{Email: "alice@test.com", DisplayName: "Alice"}
	require.NoError(t, user.SetPassword("secret1"))

	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	assert.True(t, user.CheckPassword("secret1"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.False(t, user.CheckPassword(""))
}
