package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/Renal37/auto-speed-shop/internal/services"
)

func IsUnknownUserDataValid(data models.UnknownUser) bool {
	if data.Login == nil || data.Password == nil {
		return false
	}

	return true
}

// Register регистрирует пользователя и возвращает JWT токен в заголовке Authorization.
func Register(w http.ResponseWriter, r *http.Request) {
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

	if err := (*authService).Register(r.Context(), data); err != nil {
		if errors.Is(err, services.ErrUserIsAlreadyRegistered) {
			middlewares.WriteJSONError(w, http.StatusConflict, "user is already registered")
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
