// Package mailer turns a send request into exactly one SMTP transaction and
// reports the outcome as a Result, never as an error for delivery problems.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/hal9000y/smtp-mcp/internal/smtpclient"
)

var (
	// ErrNoRecipients is returned when a request has no recipients.
	ErrNoRecipients = errors.New("at least one recipient is required")
	// ErrInvalidRecipient is returned when a recipient is not a valid address.
	ErrInvalidRecipient = errors.New("invalid recipient address")
)

// Outcome labels passed to the send recorder.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Request is a message to send.
type Request struct {
	To      []string
	Subject string
	Text    string
	// HTML, when non-empty, is sent as a text/html alternative to Text.
	HTML *string
}

type transport interface {
	Send(ctx context.Context, env smtpclient.Envelope) (*smtpclient.Response, error)
}

type sendRecorder interface {
	RecordSMTPSend(ctx context.Context, security, outcome string, duration time.Duration)
}

// Option customizes a Sender.
type Option func(*Sender)

// WithClock sets the clock used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) { s.now = now }
}

// WithIDSource sets the Message-Id generator.
func WithIDSource(newID func() string) Option {
	return func(s *Sender) { s.newID = newID }
}

// WithRecorder reports every transport attempt to rec.
func WithRecorder(rec sendRecorder) Option {
	return func(s *Sender) { s.rec = rec }
}

// Sender composes and submits messages with a fixed configuration.
// It holds no per-call state and is safe for concurrent use.
type Sender struct {
	cfg       Config
	from      *mail.Address
	transport transport
	now       func() time.Time
	newID     func() string
	rec       sendRecorder
}

// New validates cfg, applies defaults and returns a Sender using t for delivery.
func New(cfg Config, t transport, opts ...Option) (*Sender, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Relay logins are not always addresses; such a From is sent as is.
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		from = &mail.Address{Address: strings.TrimSpace(cfg.From)}
	}

	domain := messageIDDomain(from.Address)
	s := &Sender{
		cfg:       cfg,
		from:      from,
		transport: t,
		now:       time.Now,
		newID:     func() string { return newMessageID(domain) },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Config returns the effective configuration, defaults applied.
func (s *Sender) Config() Config {
	return s.cfg
}

// Send submits req once. Transport problems are reported as *Failure with a nil
// error; an error is only returned for invalid requests.
func (s *Sender) Send(ctx context.Context, req Request) (Result, error) {
	to, err := parseRecipients(req.To)
	if err != nil {
		return nil, err
	}

	rcpts := make([]string, 0, len(to))
	for _, addr := range to {
		rcpts = append(rcpts, addr.Address)
	}

	id := s.newID()

	data, err := compose(s.from, to, id, s.now(), req)
	if err != nil {
		return nil, fmt.Errorf("compose failed: %w", err)
	}

	security := s.cfg.Security()
	start := time.Now()

	resp, err := s.transport.Send(ctx, smtpclient.Envelope{
		Host:     s.cfg.Host,
		Port:     s.cfg.Port,
		Security: security,
		Username: s.cfg.Username,
		Password: s.cfg.Password,
		From:     s.from.Address,
		To:       rcpts,
		Data:     data,
	})
	if err != nil {
		s.record(ctx, security, OutcomeFailed, time.Since(start))

		return &Failure{
			MessageID: id,
			Accepted:  []string{},
			Rejected:  slices.Clone(req.To),
			Error:     err.Error(),
		}, nil
	}

	s.record(ctx, security, OutcomeSent, time.Since(start))

	return &Success{
		MessageID:    id,
		Accepted:     slices.Clone(req.To),
		Rejected:     []string{},
		ResponseCode: resp.Code,
		ResponseInfo: resp.Info,
	}, nil
}

func (s *Sender) record(ctx context.Context, security smtpclient.Security, outcome string, d time.Duration) {
	if s.rec == nil {
		return
	}
	s.rec.RecordSMTPSend(ctx, security.String(), outcome, d)
}

// parseRecipients validates the recipient list.
func parseRecipients(to []string) ([]*mail.Address, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	addrs := make([]*mail.Address, 0, len(to))
	for _, r := range to {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRecipient, r, err)
		}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}
