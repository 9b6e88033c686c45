package logger

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// AccessTokenParam параметр строки запроса с токеном доступа. Браузер не может
// передать заголовок Authorization при открытии websocket.
const AccessTokenParam = "access_token"

// Log глобальный логгер, инициализируется функцией Initialize.
// По умолчанию используется заглушка zap.NewNop(), которая не выводит никаких логов.
var Log *zap.Logger = zap.NewNop()

// Initialize инициализирует логгер с заданным уровнем логирования и средой выполнения.
// Параметры:
// - level: уровень логирования (например, "debug", "info", "warn", "error").
// - env: среда выполнения ("development" или "production").
func Initialize(level, env string) error {
	logLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("ошибка парсинга уровня логирования: %w", err)
	}

	var config zap.Config

	if env == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = logLevel

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("ошибка построения логгера: %w", err)
	}

	Log = logger

	return nil
}

// responseWriter оборачивает http.ResponseWriter и сохраняет код статуса ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack нужен для апгрейда соединения до websocket.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer doesn't support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// RequestLogger является middleware, которое логирует информацию о каждом HTTP-запросе.
// Логируются URI, метод запроса, длительность обработки и код статуса ответа.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		wrappedWriter := newResponseWriter(w)

		next.ServeHTTP(wrappedWriter, r)

		Log.Info("request handled",
			zap.String("uri", redactedURI(r)),
			zap.String("method", r.Method),
			zap.Duration("duration", time.Since(startTime)),
			zap.Int("status", wrappedWriter.statusCode),
		)
	})
}

// redactedURI скрывает токен доступа, переданный в строке запроса.
func redactedURI(r *http.Request) string {
	query := r.URL.Query()
	if !query.Has(AccessTokenParam) {
		return r.RequestURI
	}

	query.Set(AccessTokenParam, "REDACTED")
	return (&url.URL{Path: r.URL.Path, RawQuery: query.Encode()}).RequestURI()
}
