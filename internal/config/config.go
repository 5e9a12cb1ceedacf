// Package config reads the SMTP sender configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hal9000y/smtp-mcp/internal/mailer"
)

// Environment variables read by FromEnv.
const (
	EnvHost   = "SMTP_HOST"
	EnvPort   = "SMTP_PORT"
	EnvSecure = "SMTP_SECURE"
	EnvUser   = "SMTP_USER"
	EnvPass   = "SMTP_PASS"
	EnvFrom   = "SMTP_FROM"
)

var (
	// ErrMissingHost is returned when SMTP_HOST is empty.
	ErrMissingHost = errors.New("SMTP_HOST is required")
	// ErrMissingCredentials is returned when SMTP_USER or SMTP_PASS is empty.
	ErrMissingCredentials = errors.New("SMTP_USER and SMTP_PASS are required")
)

// FromEnv builds the sender configuration using getenv, usually os.Getenv.
//
// SMTP_PORT falls back to 587 when unset or non-numeric; any number is used
// as given. Only a case-insensitive "true" in SMTP_SECURE selects implicit TLS.
// SMTP_FROM defaults to SMTP_USER.
func FromEnv(getenv func(string) string) (mailer.Config, error) {
	cfg := mailer.Config{
		Host:     strings.TrimSpace(getenv(EnvHost)),
		Port:     parsePort(getenv(EnvPort)),
		Secure:   strings.EqualFold(getenv(EnvSecure), "true"),
		Username: getenv(EnvUser),
		Password: getenv(EnvPass),
		From:     strings.TrimSpace(getenv(EnvFrom)),
	}

	var errs []error
	if cfg.Host == "" {
		errs = append(errs, ErrMissingHost)
	}
	if cfg.Username == "" || cfg.Password == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}

	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	return cfg, nil
}

func parsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return mailer.DefaultPort
	}
	return port
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. With an empty path ./.env is loaded if it
// exists.
func LoadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("godotenv.Load failed: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("godotenv.Load failed: %w", err)
	}

	return nil
}
