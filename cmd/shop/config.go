package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	endpoint      string
	dsn           string
	logLevel      string
	env           string
	authSecretKey string

	paypalBaseURL        string
	paypalClientID       string
	paypalClientSecret   string
	paypalMismatchPolicy string
	paypalTimeout        time.Duration

	emailAPIURL string
	emailAPIKey string
	emailFrom   string

	notifyInterval time.Duration
	notifyBatch    int

	wsAllowedOrigins []string
}

func generateRandomString(length int) string {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// envOr возвращает значение переменной окружения или fallback.
func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("WARNING: %s=%q is not a valid duration, using %s\n", name, value, fallback)
		return fallback
	}

	return d
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("WARNING: %s=%q is not a positive number, using %d\n", name, value, fallback)
		return fallback
	}

	return n
}

// envList разбирает список значений через запятую.
func envList(name string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}

func NewConfig() Config {
	var (
		endpoint string
		dsn      string
	)

	flag.StringVar(&endpoint, "a", "localhost:8090", "address and port to run server")
	flag.StringVar(&dsn, "d", "", "data source name for database connection")
	flag.Parse()

	config := Config{
		endpoint: envOr("RUN_ADDRESS", endpoint),
		dsn:      envOr("DATABASE_URI", dsn),
		logLevel: envOr("LOG_LEVEL", "error"),
		env:      envOr("ENV", "production"),

		paypalBaseURL:        os.Getenv("PAYPAL_BASE_URL"),
		paypalClientID:       os.Getenv("PAYPAL_CLIENT_ID"),
		paypalClientSecret:   os.Getenv("PAYPAL_CLIENT_SECRET"),
		paypalMismatchPolicy: os.Getenv("PAYPAL_AMOUNT_MISMATCH_POLICY"),
		paypalTimeout:        envDuration("PAYPAL_TIMEOUT", 30*time.Second),

		emailAPIURL: os.Getenv("EMAIL_API_URL"),
		emailAPIKey: os.Getenv("EMAIL_API_KEY"),
		emailFrom:   envOr("EMAIL_FROM", "Auto Speed Shop <orders@autospeedshop.local>"),

		notifyInterval: envDuration("NOTIFY_INTERVAL", 5*time.Second),
		notifyBatch:    envInt("NOTIFY_BATCH", 20),

		wsAllowedOrigins: envList("WS_ALLOWED_ORIGINS"),
	}

	if secret := os.Getenv("AUTH_SECRET_KEY"); secret != "" {
		config.authSecretKey = secret
	} else {
		if config.env == "production" {
			config.authSecretKey = generateRandomString(10)
			log.Printf("WARNING: AUTH_SECRET_KEY has to be defined for production environment\n")
		} else {
			config.authSecretKey = "development-key"
		}
	}

	if len(config.wsAllowedOrigins) == 0 && config.env != "production" {
		config.wsAllowedOrigins = []string{"*"}
	}

	return config
}
