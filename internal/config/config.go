// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required variables halt startup when
// missing; optional features (sheet sync, broker) degrade to disabled.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	SheetsID          string // Google spreadsheet ID (optional; empty disables sync)
	SheetsClientEmail string // service account email
	SheetsPrivateKey  string // service account private key

	CheckInSweepInterval time.Duration // how often missed check-ins are swept
}

// Load reads configuration from the environment. Missing required
// variables cause a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		SheetsID:          os.Getenv("GOOGLE_SHEETS_ID"),
		SheetsClientEmail: os.Getenv("GOOGLE_CLIENT_EMAIL"),
		SheetsPrivateKey:  os.Getenv("GOOGLE_PRIVATE_KEY"),

		CheckInSweepInterval: envDur("CHECKIN_SWEEP_INTERVAL", time.Minute),
	}
}

// SheetsEnabled reports whether the sheet sync credentials are all set.
func (c Config) SheetsEnabled() bool {
	return c.SheetsID != "" && c.SheetsClientEmail != "" && c.SheetsPrivateKey != ""
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
