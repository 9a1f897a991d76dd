// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs at startup.
type Config struct {
	Server   Server
	Database Database
	Logging  Logging
}

// Server configures the HTTP listener.
type Server struct {
	Port string
}

// Database configures the PostgreSQL connection.
type Database struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string
}

// Logging configures zerolog output.
type Logging struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables, falling back to
// local-development defaults. A .env file is loaded first when present;
// it is optional so containers can supply plain environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Port: getEnv("PORT", "8080"),
		},
		Database: Database{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "events"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Logging: Logging{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.Host) == "" {
		return fmt.Errorf("config: DB_HOST must not be empty")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("config: DB_NAME must not be empty")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	return nil
}

// DSN builds a libpq-compatible connection string for pgx.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL builds a postgres:// URL, the form golang-migrate expects.
// Credentials are escaped so passwords with reserved characters survive.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
