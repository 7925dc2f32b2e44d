package validators

import (
	"testing"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Register(t *testing.T) {
	v := NewValidator()
	ok := models.RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Username: "alice_01",
		Phone:    "+15550001111",
		Gender:   "female",
		Password: "long-enough",
	}
	require.NoError(t, v.Validate(ok))

	bad := ok
	bad.Username = "al ice"
	err := v.Validate(bad)
	require.Error(t, err)
	assert.Contains(t, Message(err), "username")

	bad = ok
	bad.Email = ""
	err = v.Validate(bad)
	require.Error(t, err)
	assert.Equal(t, "the email field is required", Message(err))
}

func TestValidate_ConfirmCode(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(models.ConfirmChangeRequest{Code: "123456"}))
	assert.Error(t, v.Validate(models.ConfirmChangeRequest{Code: "12345"}))
	assert.Error(t, v.Validate(models.ConfirmChangeRequest{Code: "12345a"}))
}
