package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/services"
)

// Login обрабатывает запрос на вход пользователя и возвращает JWT токен при успешной авторизации.
func Login(w http.ResponseWriter, r *http.Request) {
	data, ok := middlewares.GetParsedJSONData[models.UnknownUser](w, r)
	if !ok {
		return
	}

	authService := middlewares.GetServiceFromContext[models.AuthService](w, r, middlewares.AuthServiceKey)
	jwtService := middlewares.GetServiceFromContext[models.JWTService](w, r, middlewares.JwtServiceKey)
	if authService == nil || jwtService == nil {
		return
	}

	if ok := IsUnknownUserDataValid(data); !ok {
		middlewares.WriteJSONError(w, http.StatusBadRequest, "request doesn't contain login or password")
		return
	}

	if err := (*authService).Login(r.Context(), data); err != nil {
		// Ответ одинаков для неизвестного логина и неверного пароля.
		if errors.Is(err, services.ErrUserIsNotExist) || errors.Is(err, services.ErrPasswordIsIncorrect) {
			middlewares.WriteJSONError(w, http.StatusUnauthorized, "invalid login or password")
			return
		}

		writeServiceError(w, r, err)
		return
	}

	token, err := (*jwtService).GenerateJWT(*data.Login)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token))
}
