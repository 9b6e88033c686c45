package services

import (
	"context"
	"testing"

	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users map[string]database.UserDB
}

func (s *fakeUserStore) CreateUser(_ context.Context, user database.UserDB) error {
	if _, ok := s.users[user.Login]; ok {
		return database.ErrDuplicateUser
	}
	user.ID = "id-" + user.Login
	s.users[user.Login] = user
	return nil
}

func (s *fakeUserStore) FindUser(_ context.Context, login string) (*database.UserDB, error) {
	user, ok := s.users[login]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func unknownUser(login, password string) models.UnknownUser {
	return models.UnknownUser{Login: &login, Password: &password}
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	store := &fakeUserStore{users: map[string]database.UserDB{}}
	auth := NewAuthService(store)

	t.Run("Регистрация проверяет длину пароля", func(t *testing.T) {
		err := auth.Register(ctx, unknownUser("jane", "123"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Регистрация требует логин", func(t *testing.T) {
		err := auth.Register(ctx, models.UnknownUser{Password: ptr("secret1")})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Логин нормализуется и хранится хэш", func(t *testing.T) {
		require.NoError(t, auth.Register(ctx, unknownUser("  Jane ", "secret1")))

		stored, ok := store.users["jane"]
		require.True(t, ok)
		assert.NotEqual(t, "secret1", stored.Hash)
		assert.False(t, stored.IsAdmin)
	})

	t.Run("Повторная регистрация", func(t *testing.T) {
		err := auth.Register(ctx, unknownUser("JANE", "secret2"))
		assert.ErrorIs(t, err, ErrUserIsAlreadyRegistered)
	})

	t.Run("Вход", func(t *testing.T) {
		assert.NoError(t, auth.Login(ctx, unknownUser("jane", "secret1")))
		assert.ErrorIs(t, auth.Login(ctx, unknownUser("jane", "wrong-password")), ErrPasswordIsIncorrect)
		assert.ErrorIs(t, auth.Login(ctx, unknownUser("john", "secret1")), ErrUserIsNotExist)
	})

	t.Run("Пользователь сессии", func(t *testing.T) {
		user, err := auth.GetUser(ctx, "Jane")
		require.NoError(t, err)
		assert.Equal(t, "id-jane", user.ID)

		_, err = auth.GetUser(ctx, "john")
		assert.ErrorIs(t, err, ErrUserIsNotExist)
	})
}
