// Package smtpclient submits a single message to an SMTP server over an
// implicitly encrypted or STARTTLS-upgraded connection.
package smtpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Security selects how the connection is encrypted.
type Security int

const (
	// StartTLS connects in cleartext and upgrades with the STARTTLS command
	// before authenticating (conventionally port 587).
	StartTLS Security = iota
	// ImplicitTLS performs the TLS handshake before the SMTP greeting
	// (conventionally port 465).
	ImplicitTLS
)

func (s Security) String() string {
	switch s {
	case ImplicitTLS:
		return "implicit_tls"
	case StartTLS:
		return "starttls"
	default:
		return "unknown"
	}
}

// Envelope is everything needed for one SMTP transaction.
type Envelope struct {
	Host     string
	Port     int
	Security Security
	Username string
	Password string
	From     string
	To       []string
	Data     []byte
}

// Response is the server reply to the end of DATA.
type Response struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

// Client opens one connection per Send and closes it afterwards.
type Client struct {
	// TLSConfig is cloned per connection. ServerName defaults to the envelope host.
	TLSConfig *tls.Config
}

// Send dials the server, authenticates and submits env.Data to all recipients.
func (c *Client) Send(ctx context.Context, env Envelope) (*Response, error) {
	clt, err := c.dial(ctx, env)
	if err != nil {
		return nil, err
	}
	defer func() { _ = clt.Close() }()

	if err := clt.Auth(saslClient(clt, env.Username, env.Password)); err != nil {
		return nil, fmt.Errorf("clt.Auth failed: %w", err)
	}

	if err := clt.Mail(env.From, nil); err != nil {
		return nil, fmt.Errorf("clt.Mail failed: %w", err)
	}

	for _, rcpt := range env.To {
		if err := clt.Rcpt(rcpt, nil); err != nil {
			return nil, fmt.Errorf("clt.Rcpt(%s) failed: %w", rcpt, err)
		}
	}

	wc, err := clt.Data()
	if err != nil {
		return nil, fmt.Errorf("clt.Data failed: %w", err)
	}

	if _, err := wc.Write(env.Data); err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("wc.Write failed: %w", err)
	}

	resp, err := wc.CloseWithResponse()
	if err != nil {
		return nil, fmt.Errorf("wc.CloseWithResponse failed: %w", err)
	}

	// The message is already accepted, a failed QUIT changes nothing.
	_ = clt.Quit()

	return &Response{
		Code: 250,
		Info: resp.StatusText,
	}, nil
}

func (c *Client) dial(ctx context.Context, env Envelope) (*smtp.Client, error) {
	addr := net.JoinHostPort(env.Host, strconv.Itoa(env.Port))
	tlsCfg := c.tlsConfig(env.Host)

	switch env.Security {
	case ImplicitTLS:
		conn, err := (&tls.Dialer{Config: tlsCfg}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s failed: %w", addr, err)
		}
		return smtp.NewClient(conn), nil
	case StartTLS:
		conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s failed: %w", addr, err)
		}
		clt, err := smtp.NewClientStartTLS(conn, tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("smtp.NewClientStartTLS failed: %w", err)
		}
		return clt, nil
	default:
		return nil, fmt.Errorf("unsupported security mode: %d", env.Security)
	}
}

func (c *Client) tlsConfig(host string) *tls.Config {
	var cfg *tls.Config
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.ServerName == "" {
		cfg.ServerName = host
	}

	return cfg
}

// saslClient prefers PLAIN and falls back to LOGIN only when the server
// advertises LOGIN without PLAIN.
func saslClient(clt *smtp.Client, username, password string) sasl.Client {
	if ok, params := clt.Extension("AUTH"); ok {
		mechs := strings.Fields(strings.ToUpper(params))
		if !slices.Contains(mechs, sasl.Plain) && slices.Contains(mechs, sasl.Login) {
			return sasl.NewLoginClient(username, password)
		}
	}

	return sasl.NewPlainClient("", username, password)
}
