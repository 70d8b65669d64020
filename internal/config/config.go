package config

import (
	"log"
	"os"
	"strings"
	"time"
)

const (
	defaultEnv          = "dev"
	defaultPort         = "8080"
	defaultTablePath    = "./data/prisliste.json"
	defaultFetchTimeout = 10 * time.Second
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env            string
	Port           string
	DBPath         string
	PriceTableURL  string
	PriceTablePath string
	AdminToken     string
	LogFile        string
	FetchTimeout   time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Local development values; real deployments inject the environment.
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("warning: read .env: %v", err)
	}

	cfg := Config{
		Env:            strings.ToLower(strings.TrimSpace(os.Getenv("ENV"))),
		Port:           os.Getenv("PORT"),
		DBPath:         os.Getenv("DB_PATH"),
		PriceTableURL:  strings.TrimSpace(os.Getenv("PRICE_TABLE_URL")),
		PriceTablePath: os.Getenv("PRICE_TABLE_PATH"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		LogFile:        os.Getenv("LOG_FILE"),
		FetchTimeout:   defaultFetchTimeout,
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.PriceTableURL == "" && cfg.PriceTablePath == "" {
		cfg.PriceTablePath = defaultTablePath
	}
	if raw := os.Getenv("FETCH_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			log.Printf("warning: FETCH_TIMEOUT %q is invalid, using %s", raw, defaultFetchTimeout)
		} else {
			cfg.FetchTimeout = d
		}
	}

	if cfg.AdminToken == "" {
		log.Print("warning: ADMIN_TOKEN is not set, price table reload is disabled")
	}
	if cfg.DBPath == "" {
		log.Print("warning: DB_PATH is not set, no price table cache")
	}

	return cfg
}

// IsDev reports whether the service runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv || c.Env == "development" || c.Env == "local"
}
