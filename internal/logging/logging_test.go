package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/smtp-mcp/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, logging.ErrInvalidLevel)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logging.WithTool(logger, "send_email").Warn("shown",
		logging.MessageID("<id@example.com>"),
		logging.Recipients(2),
		logging.Duration(time.Second),
		logging.Security("starttls"),
		logging.Status("failed"),
		logging.Err(errors.New("boom")),
		logging.Err(nil),
	)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "tool=send_email")
	assert.Contains(t, out, "message_id=<id@example.com>")
	assert.Contains(t, out, "recipients=2")
	assert.Contains(t, out, "duration=1s")
	assert.Contains(t, out, "security=starttls")
	assert.Contains(t, out, "status=failed")
	assert.Contains(t, out, "error=boom")

	_, err = logging.New(&buf, "loud")
	assert.ErrorIs(t, err, logging.ErrInvalidLevel)
}
