package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"anotador/pkg/logger"
)

// Config holds everything the client needs to talk to the project API
// and the realtime endpoint.
type Config struct {
	APIBaseURL string
	WSBaseURL  string

	RequestTimeout time.Duration

	// Zoom bounds for document sessions, in percent.
	ZoomMin  int
	ZoomMax  int
	ZoomStep int

	// Realtime keepalive and reconnect behaviour.
	PingInterval   time.Duration
	ReconnectDelay time.Duration
}

// Load reads configuration from a .env file (if present) and the
// process environment. Missing values fall back to defaults that match
// the development API.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	return Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8005/api/v1"),
		WSBaseURL:      getEnv("WS_BASE_URL", "ws://localhost:8005/api/v1"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
		ZoomMin:        getInt("ZOOM_MIN", 50),
		ZoomMax:        getInt("ZOOM_MAX", 200),
		ZoomStep:       getInt("ZOOM_STEP", 10),
		PingInterval:   getDuration("PING_INTERVAL", 30*time.Second),
		ReconnectDelay: getDuration("RECONNECT_DELAY", 3*time.Second),
	}
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Sugar.Warnf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Sugar.Warnf("Invalid value for %s: %q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
