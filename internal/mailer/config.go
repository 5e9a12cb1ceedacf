package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hal9000y/smtp-mcp/internal/smtpclient"
)

// DefaultPort is the submission port used when none is configured.
const DefaultPort = 587

// ErrInvalidConfig is returned when required connection settings are missing.
var ErrInvalidConfig = errors.New("invalid smtp config")

// Config holds SMTP connection parameters and credentials.
type Config struct {
	Host string
	Port int
	// Secure selects implicit TLS; otherwise the connection is upgraded with STARTTLS.
	Secure   bool
	Username string
	Password string
	// From defaults to Username.
	From string
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	return nil
}

// Security derives the transport mode from Secure.
func (c Config) Security() smtpclient.Security {
	if c.Secure {
		return smtpclient.ImplicitTLS
	}
	return smtpclient.StartTLS
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.From == "" {
		c.From = c.Username
	}
	return c
}
