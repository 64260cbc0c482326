package repositories

import (
	"chat-lounge/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	// When a user is created
	created, err := repository.CreateUser("alice", "$argon2id$hash")
	req.NoError(err)
	req.NotEmpty(created.ID)

	// Then it can be read back by username
	user, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal(created.ID, user.ID)
	req.Equal("alice", user.Username)
	req.Equal("$argon2id$hash", user.PasswordHash)
}

func TestUserRepository_Create_Twice(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	_, err := repository.CreateUser("alice", "first")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "second")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	user, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal("first", user.PasswordHash)
}

func TestUserRepository_Get_Unknown(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	_, err := repository.GetUser("nobody")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
