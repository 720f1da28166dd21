package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the server settings read from the environment.
type Config struct {
	HTTPAddr   string
	CORSOrigin string

	// Websocket keepalive knobs.
	PingInterval time.Duration
	PingTimeout  time.Duration

	// AbandonThreshold is the number of connected members at or below
	// which a room is torn down after a disconnect. 0 means a room
	// survives until nobody is left connected.
	AbandonThreshold int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads .env if present, then builds a Config from the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded, using environment: %v", err)
	}
	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":4000"),
		CORSOrigin:       getenv("CORS_ORIGIN", "*"),
		PingInterval:     getenvDuration("PING_INTERVAL", 10*time.Second),
		PingTimeout:      getenvDuration("PING_TIMEOUT", 60*time.Second),
		AbandonThreshold: getenvInt("ABANDON_THRESHOLD", 0),
	}
}
