package instrumentation_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/smtp-mcp/internal/instrumentation"
)

func scrape(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestProviderEnabled(t *testing.T) {
	ctx := context.Background()

	p, err := instrumentation.NewProvider(ctx, instrumentation.Config{ServiceName: "email-mcp-server", ServiceVersion: "test", Enabled: true})
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Shutdown(ctx)) }()

	require.True(t, p.Enabled())

	m := p.Metrics()
	m.RecordToolInvocation(ctx, "send_email", "sent", 120*time.Millisecond)
	m.RecordToolInvocation(ctx, "send_email", "invalid", time.Millisecond)
	m.RecordSMTPSend(ctx, "starttls", "sent", 100*time.Millisecond)

	code, body := scrape(t, p.Router(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "mcp_tool_invocations_total")
	assert.Contains(t, body, `tool="send_email"`)
	assert.Contains(t, body, `status="invalid"`)
	assert.Contains(t, body, "mcp_tool_duration_seconds")
	assert.Contains(t, body, "smtp_sends_total")
	assert.Contains(t, body, `security="starttls"`)
	assert.Contains(t, body, "smtp_send_duration_seconds")

	code, body = scrape(t, p.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestProvidersAreIndependent(t *testing.T) {
	ctx := context.Background()

	a, err := instrumentation.NewProvider(ctx, instrumentation.Config{ServiceName: "a", Enabled: true})
	require.NoError(t, err)
	b, err := instrumentation.NewProvider(ctx, instrumentation.Config{ServiceName: "b", Enabled: true})
	require.NoError(t, err)

	a.Metrics().RecordSMTPSend(ctx, "implicit_tls", "failed", time.Second)

	_, body := scrape(t, b.Handler(), "")
	assert.NotContains(t, body, "implicit_tls")

	_, body = scrape(t, a.Handler(), "")
	assert.Contains(t, body, "implicit_tls")
}

func TestProviderDisabled(t *testing.T) {
	ctx := context.Background()

	p, err := instrumentation.NewProvider(ctx, instrumentation.Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	require.NotNil(t, p.Metrics())

	assert.NotPanics(t, func() {
		p.Metrics().RecordToolInvocation(ctx, "send_email", "sent", time.Second)
		p.Metrics().RecordSMTPSend(ctx, "starttls", "sent", time.Second)
	})

	code, _ := scrape(t, p.Router(), "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNilMetrics(t *testing.T) {
	var m *instrumentation.Metrics
	assert.NotPanics(t, func() {
		m.RecordToolInvocation(context.Background(), "send_email", "sent", time.Second)
		m.RecordSMTPSend(context.Background(), "starttls", "sent", time.Second)
	})
}
