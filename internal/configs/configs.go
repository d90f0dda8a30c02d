/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables, optionally
seeded from a local .env file: the running environment, listen port, static asset directory,
allowed WebSocket origins, and extra words for the profanity filter.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPort is used when PORT is unset.
const DefaultPort = 3000

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	PublicDir   string

	// Security Settings
	AllowedOrigins []string

	// Content Settings
	ProfanityExtraWords []string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// A .env file in the working directory is loaded first when present; variables already
// set in the environment take precedence over it.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := parsePort(os.Getenv("PORT"))
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	cfg.PublicDir = os.Getenv("PUBLIC_DIR")
	if cfg.PublicDir == "" {
		cfg.PublicDir = "./public"
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	// --- Content Settings ---
	cfg.ProfanityExtraWords = splitList(os.Getenv("PROFANITY_EXTRA_WORDS"))

	return cfg, nil
}

func parsePort(portStr string) (int, error) {
	if portStr == "" {
		return DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PORT environment variable: %w", err)
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port number %d is outside the valid range (1-65535)", port)
	}

	return port, nil
}

// splitList splits a comma separated value, trimming entries and skipping empty ones.
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
