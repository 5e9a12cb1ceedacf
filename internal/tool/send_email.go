// Package tool implements the MCP tools served over stdio.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/smtp-mcp/internal/logging"
	"github.com/hal9000y/smtp-mcp/internal/mailer"
)

// ToolSendEmail is the name the send tool is registered under.
const ToolSendEmail = "send_email"

// Invocation statuses reported to the recorder.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusInvalid = "invalid"
)

// ErrInvalidArguments is returned when send_email arguments have the wrong shape.
var ErrInvalidArguments = errors.New("invalid arguments")

// SendEmailRequest holds the decoded send_email arguments.
type SendEmailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

type mailSender interface {
	Send(ctx context.Context, req mailer.Request) (mailer.Result, error)
}

type recorder interface {
	RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordToolInvocation(context.Context, string, string, time.Duration) {}

func sendEmailSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"to": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				Description: "List of recipient email addresses",
			},
			"subject": {
				Type:        "string",
				Description: "Email subject",
			},
			"body": {
				Type:        "string",
				Description: "Email body content (text/plain)",
			},
		},
		Required: []string{"to", "subject", "body"},
		// Advertised only. Calls with extra fields are still accepted.
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

// NewSendEmail creates the send_email handler. A nil rec or logger disables
// metrics or logging.
func NewSendEmail(svc mailSender, rec recorder, logger *slog.Logger) *SendEmail {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SendEmail{
		svc:    svc,
		rec:    rec,
		logger: logging.WithTool(logger, ToolSendEmail),
	}
}

// SendEmail hands send_email calls to the mail sender one at a time.
type SendEmail struct {
	svc    mailSender
	rec    recorder
	logger *slog.Logger

	mu sync.Mutex
}

// SendEmail validates the arguments and sends the message. Invalid arguments
// are returned as errors; delivery failures are returned as a regular result
// whose JSON payload carries the error.
func (t *SendEmail) SendEmail(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	var raw json.RawMessage
	if req.Params != nil {
		raw = req.Params.Arguments
	}

	input, err := parseSendEmailArgs(raw)
	if err != nil {
		t.reject(ctx, start, err)
		return nil, err
	}

	res, err := t.send(ctx, input)
	if err != nil {
		err = fmt.Errorf("svc.Send failed: %w", err)
		t.reject(ctx, start, err)
		return nil, err
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal failed: %w", err)
	}

	status := StatusSent
	if !res.Delivered() {
		status = StatusFailed
	}
	t.rec.RecordToolInvocation(ctx, ToolSendEmail, status, time.Since(start))

	attrs := []any{
		logging.Status(status),
		logging.MessageID(res.ID()),
		logging.Recipients(len(input.To)),
		logging.Duration(time.Since(start)),
	}
	if f, ok := res.(*mailer.Failure); ok {
		t.logger.Warn("email delivery failed", append(attrs, slog.String(logging.KeyError, f.Error))...)
	} else {
		t.logger.Info("email sent", attrs...)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil
}

// send runs one delivery at a time and is not cancelled with the request.
func (t *SendEmail) send(ctx context.Context, input SendEmailRequest) (mailer.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.svc.Send(context.WithoutCancel(ctx), mailer.Request{
		To:      input.To,
		Subject: input.Subject,
		Text:    input.Body,
	})
}

func (t *SendEmail) reject(ctx context.Context, start time.Time, err error) {
	t.rec.RecordToolInvocation(ctx, ToolSendEmail, StatusInvalid, time.Since(start))
	t.logger.Info("send_email call rejected", logging.Status(StatusInvalid), logging.Err(err))
}

// parseSendEmailArgs decodes arguments leniently: missing or null fields take
// their zero value (to becomes an empty list), unknown fields are ignored,
// fields of the wrong type are an error.
func parseSendEmailArgs(raw json.RawMessage) (SendEmailRequest, error) {
	input := SendEmailRequest{To: []string{}}
	if len(raw) == 0 {
		return input, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return input, fmt.Errorf("%w: arguments must be an object", ErrInvalidArguments)
	}

	if v, ok := fields["to"]; ok {
		var items []any
		if err := json.Unmarshal(v, &items); err != nil {
			return input, fmt.Errorf("%w: 'to' must be a list of strings", ErrInvalidArguments)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return input, fmt.Errorf("%w: 'to' must be a list of strings", ErrInvalidArguments)
			}
			input.To = append(input.To, s)
		}
	}

	var err error
	if input.Subject, err = stringArg(fields, "subject"); err != nil {
		return input, err
	}
	if input.Body, err = stringArg(fields, "body"); err != nil {
		return input, err
	}

	return input, nil
}

func stringArg(fields map[string]json.RawMessage, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}

	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: '%s' must be a string", ErrInvalidArguments, name)
	}
	if s == nil {
		return "", nil
	}

	return *s, nil
}
