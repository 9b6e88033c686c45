package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"go.uber.org/zap"
)

// parsedJSONDataFieldType является типом для хранения данных JSON в контексте запроса.
type parsedJSONDataFieldType string

// parsedJSONDataField - ключ для хранения данных JSON в контексте запроса.
const parsedJSONDataField parsedJSONDataFieldType = "parsedJSONDataField"

// maxBodySize ограничение размера тела JSON-запроса.
const maxBodySize = 1 << 20

// ModelParameter определяет интерфейс, который могут реализовывать модели, поддерживающие как одиночные значения, так и срезы значений.
type ModelParameter interface {
	interface{} | []interface{}
}

// ErrorResponse тело ответа с ошибкой.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// JSONMiddleware обрабатывает JSON-запросы и извлекает данные JSON из тела запроса.
func JSONMiddleware[Model ModelParameter](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Допускается charset после типа: application/json; charset=utf-8.
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			WriteJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}

		var parsedData Model
		var buf bytes.Buffer

		if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodySize)); err != nil {
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %s", err.Error()))
			return
		}

		if err := json.Unmarshal(buf.Bytes(), &parsedData); err != nil {
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err.Error()))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), parsedJSONDataField, parsedData)))
	})
}

// GetParsedJSONData извлекает данные JSON из контекста запроса.
func GetParsedJSONData[Model ModelParameter](w http.ResponseWriter, r *http.Request) (Model, bool) {
	data, ok := r.Context().Value(parsedJSONDataField).(Model)

	if !ok {
		WriteJSONError(w, http.StatusInternalServerError, "failed to get request data from context")
		var empty Model
		return empty, false
	}

	return data, true
}

// EncodeJSONResponse отправляет данные в формате JSON со статусом 200.
func EncodeJSONResponse[Model any](w http.ResponseWriter, data Model) {
	EncodeJSONResponseWithStatus(w, http.StatusOK, data)
}

// EncodeJSONResponseWithStatus отправляет данные в формате JSON с заданным статусом.
func EncodeJSONResponseWithStatus[Model any](w http.ResponseWriter, status int, data Model) {
	resp, err := json.Marshal(data)
	if err != nil {
		logger.Log.Error("failed to encode response", zap.Error(err))
		WriteJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(resp); err != nil {
		logger.Log.Warn("failed to write response", zap.Error(err))
	}
}

// WriteJSONError отправляет ошибку в формате {"message": "..."}.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, ErrorResponse{Message: message})
}

// WriteJSONErrorWithDetails отправляет ошибку вместе с ответом внешнего сервиса.
func WriteJSONErrorWithDetails(w http.ResponseWriter, status int, message, details string) {
	writeError(w, status, ErrorResponse{Message: message, Details: details})
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	resp, _ := json.Marshal(body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(resp)
}
