package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Renal37/auto-speed-shop/internal/database"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	ErrUserIsAlreadyRegistered = errors.New("user is already registered")
	ErrUserIsNotExist          = errors.New("user doesn't exist")
	ErrPasswordIsIncorrect     = errors.New("password is incorrect")
)

// AuthService регистрация и вход покупателей и администраторов.
type AuthService struct {
	storage AuthStorage
}

type AuthStorage interface {
	CreateUser(ctx context.Context, user database.UserDB) error
	FindUser(ctx context.Context, login string) (*database.UserDB, error)
}

func NewAuthService(storage AuthStorage) *AuthService {
	return &AuthService{storage: storage}
}

// Register регистрирует нового пользователя без прав администратора.
func (auth *AuthService) Register(ctx context.Context, user models.UnknownUser) error {
	if err := validateUser(user); err != nil {
		return err
	}

	if len(*user.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка при хэшировании пароля: %w", err)
	}

	err = auth.storage.CreateUser(ctx, database.UserDB{
		User: models.User{
			Login: normalizeLogin(*user.Login),
			Hash:  string(hashedPassword),
		},
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			return ErrUserIsAlreadyRegistered
		}
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return nil
}

// Login проверяет логин и пароль.
func (auth *AuthService) Login(ctx context.Context, user models.UnknownUser) error {
	if err := validateUser(user); err != nil {
		return err
	}

	u, err := auth.storage.FindUser(ctx, normalizeLogin(*user.Login))
	if err != nil {
		return fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if u == nil {
		return ErrUserIsNotExist
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(*user.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordIsIncorrect
		}
		return fmt.Errorf("ошибка при сравнении паролей: %w", err)
	}

	return nil
}

// GetUser возвращает пользователя по логину вместе с признаком администратора.
func (auth *AuthService) GetUser(ctx context.Context, login string) (*models.User, error) {
	user, err := auth.storage.FindUser(ctx, normalizeLogin(login))
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if user == nil {
		return nil, ErrUserIsNotExist
	}

	return &user.User, nil
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func validateUser(user models.UnknownUser) error {
	if user.Login == nil || strings.TrimSpace(*user.Login) == "" {
		return fmt.Errorf("%w: login is empty", ErrValidation)
	}
	if user.Password == nil || *user.Password == "" {
		return fmt.Errorf("%w: password is empty", ErrValidation)
	}
	return nil
}
