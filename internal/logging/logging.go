// Package logging builds the process logger and holds the attribute keys
// shared by every component.
//
// Logs never go to stdout: the stdio transport owns it.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys.
const (
	KeyTool       = "tool"
	KeyStatus     = "status"
	KeyMessageID  = "message_id"
	KeyRecipients = "recipients"
	KeyError      = "error"
	KeyDuration   = "duration"
	KeySecurity   = "security"
)

// ErrInvalidLevel is returned by ParseLevel for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// MessageID returns a slog attribute for the Message-Id.
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// Recipients returns a slog attribute with the recipient count. Addresses are
// not logged.
func Recipients(n int) slog.Attr {
	return slog.Int(KeyRecipients, n)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Security returns a slog attribute for the SMTP security mode.
func Security(mode string) slog.Attr {
	return slog.String(KeySecurity, mode)
}

// Err returns a slog attribute for an error. A nil err yields an empty group
// that slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}
