package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/services"
	"go.uber.org/zap"
)

// userFieldType определяет тип для ключа, используемого для хранения данных пользователя в контексте.
type userFieldType string

// userField является ключом для хранения информации о пользователе в контексте запроса.
const userField userFieldType = "userField"

// AuthMiddlewareConfig представляет конфигурацию middleware для аутентификации.
type AuthMiddlewareConfig struct {
	excludePaths    []string // Пути без проверки аутентификации.
	optionalPaths   []string // Пути, где сессия не обязательна, но проверяется при наличии заголовка.
	queryTokenPaths []string // Пути, где токен может прийти в параметре access_token.
}

// AuthMiddleware создает новую конфигурацию middleware для аутентификации.
func AuthMiddleware() *AuthMiddlewareConfig {
	return &AuthMiddlewareConfig{}
}

// WithExcludedPaths устанавливает пути, которые будут исключены из проверки аутентификации.
func (a *AuthMiddlewareConfig) WithExcludedPaths(paths ...string) *AuthMiddlewareConfig {
	a.excludePaths = paths
	return a
}

// WithOptionalPaths устанавливает пути, доступные и гостям, и пользователям.
func (a *AuthMiddlewareConfig) WithOptionalPaths(paths ...string) *AuthMiddlewareConfig {
	a.optionalPaths = paths
	return a
}

// WithQueryTokenPaths разрешает передавать токен в строке запроса, если нет заголовка.
func (a *AuthMiddlewareConfig) WithQueryTokenPaths(paths ...string) *AuthMiddlewareConfig {
	a.queryTokenPaths = paths
	return a
}

// Middleware возвращает middleware для аутентификации, используя установленную конфигурацию.
func (a *AuthMiddlewareConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasPrefix(r.URL.Path, a.excludePaths) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && hasPrefix(r.URL.Path, a.queryTokenPaths) {
			if token := r.URL.Query().Get(logger.AccessTokenParam); token != "" {
				authHeader = "Bearer " + token
			}
		}

		if authHeader == "" {
			if hasPrefix(r.URL.Path, a.optionalPaths) {
				next.ServeHTTP(w, r)
				return
			}

			WriteJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		user, status, message := authenticate(w, r, authHeader)
		if user == nil {
			if status != 0 {
				WriteJSONError(w, status, message)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userField, user)))
	})
}

// authenticate проверяет токен и загружает пользователя.
// Нулевой статус означает, что ответ уже отправлен.
func authenticate(w http.ResponseWriter, r *http.Request, authHeader string) (*models.User, int, string) {
	authService := GetServiceFromContext[models.AuthService](w, r, AuthServiceKey)
	if authService == nil {
		return nil, 0, ""
	}

	jwtService := GetServiceFromContext[models.JWTService](w, r, JwtServiceKey)
	if jwtService == nil {
		return nil, 0, ""
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return nil, http.StatusUnauthorized, "Bearer token is empty"
	}

	token, err := (*jwtService).ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, services.ErrTokenIsExpired) {
			return nil, http.StatusUnauthorized, "token is expired"
		}

		return nil, http.StatusUnauthorized, "token is invalid"
	}

	login, err := token.Claims.GetSubject()
	if err != nil || login == "" {
		return nil, http.StatusUnauthorized, "token subject is missing"
	}

	user, err := (*authService).GetUser(r.Context(), login)
	if err != nil {
		if errors.Is(err, services.ErrUserIsNotExist) {
			return nil, http.StatusUnauthorized, "user doesn't exist"
		}

		logger.Log.Error("failed to load session user", zap.String("login", login), zap.Error(err))
		return nil, http.StatusInternalServerError, "failed to load user"
	}

	return user, 0, ""
}

// RequireAdmin пропускает запрос только для администратора.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := LookupUser(r)

		if user == nil {
			WriteJSONError(w, http.StatusUnauthorized, "authentication is required")
			return
		}

		if !user.IsAdmin {
			WriteJSONError(w, http.StatusForbidden, "admin access is required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext извлекает информацию о пользователе из контекста запроса.
// В случае ошибки возвращает HTTP 401 и nil.
func GetUserFromContext(w http.ResponseWriter, r *http.Request) *models.User {
	user := LookupUser(r)

	if user == nil {
		WriteJSONError(w, http.StatusUnauthorized, "authentication is required")
		return nil
	}

	return user
}

// LookupUser возвращает пользователя сессии или nil для гостя.
func LookupUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userField).(*models.User)
	return user
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
