package mailer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

type part struct {
	mediaType string
	body      string
}

// compose renders the RFC 5322 message. The output depends only on the
// request, the addresses, id and date. Display names and the subject are
// RFC 2047 encoded. An empty HTML body is treated as absent.
func compose(from *mail.Address, to []*mail.Address, id string, date time.Time, req Request) ([]byte, error) {
	var h mail.Header
	h.Set("MIME-Version", "1.0")
	h.SetDate(date)
	if strings.Contains(from.Address, "@") {
		h.SetAddressList("From", []*mail.Address{from})
	} else {
		h.Set("From", from.Address)
	}
	h.SetAddressList("To", to)
	h.SetSubject(req.Subject)
	h.Set("Message-Id", id)

	var buf bytes.Buffer

	if req.HTML == nil || *req.HTML == "" {
		setTextPart(&h.Header, "text/plain")
		if err := writeSingle(&buf, h.Header, req.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	h.SetContentType("multipart/alternative", nil)
	err := writeAlternative(&buf, h.Header, []part{
		{mediaType: "text/plain", body: req.Text},
		{mediaType: "text/html", body: *req.HTML},
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeSingle(w io.Writer, h message.Header, body string) error {
	mw, err := message.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("message.CreateWriter failed: %w", err)
	}

	if _, err := io.WriteString(mw, body); err != nil {
		return fmt.Errorf("mw.Write failed: %w", err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("mw.Close failed: %w", err)
	}

	return nil
}

func writeAlternative(w io.Writer, h message.Header, parts []part) error {
	mw, err := message.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("message.CreateWriter failed: %w", err)
	}

	for _, p := range parts {
		var ph message.Header
		setTextPart(&ph, p.mediaType)

		pw, err := mw.CreatePart(ph)
		if err != nil {
			return fmt.Errorf("mw.CreatePart(%s) failed: %w", p.mediaType, err)
		}

		if _, err := io.WriteString(pw, p.body); err != nil {
			return fmt.Errorf("pw.Write failed: %w", err)
		}

		if err := pw.Close(); err != nil {
			return fmt.Errorf("pw.Close failed: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("mw.Close failed: %w", err)
	}

	return nil
}

func setTextPart(h *message.Header, mediaType string) {
	h.SetContentType(mediaType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
}

// newMessageID returns "<uuid@domain>".
func newMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func messageIDDomain(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}

	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}

	return "localhost"
}
