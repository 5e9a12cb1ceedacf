package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrTool     = "tool"
	attrStatus   = "status"
	attrSecurity = "security"
	attrOutcome  = "outcome"
)

// Metrics records observability metrics. The zero value and a nil pointer are
// no-ops.
type Metrics struct {
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	smtpSendsTotal   metric.Int64Counter
	smtpSendDuration metric.Float64Histogram
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("meter.Int64Counter(mcp_tool_invocations_total) failed: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("meter.Float64Histogram(mcp_tool_duration_seconds) failed: %w", err)
	}

	m.smtpSendsTotal, err = meter.Int64Counter(
		"smtp_sends_total",
		metric.WithDescription("Total number of SMTP submission attempts"),
		metric.WithUnit("{send}"),
	)
	if err != nil {
		return nil, fmt.Errorf("meter.Int64Counter(smtp_sends_total) failed: %w", err)
	}

	m.smtpSendDuration, err = meter.Float64Histogram(
		"smtp_send_duration_seconds",
		metric.WithDescription("SMTP transaction duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("meter.Float64Histogram(smtp_send_duration_seconds) failed: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records one tool call.
//
// status is one of sent, failed or invalid.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSMTPSend records one SMTP transaction.
func (m *Metrics) RecordSMTPSend(ctx context.Context, security, outcome string, duration time.Duration) {
	if m == nil || m.smtpSendsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrSecurity, security),
		attribute.String(attrOutcome, outcome),
	)

	m.smtpSendsTotal.Add(ctx, 1, attrs)
	m.smtpSendDuration.Record(ctx, duration.Seconds(), attrs)
}
