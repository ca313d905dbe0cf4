// Package mail delivers the finished report over SMTP. Its failures are
// confined to the reporting stage: the pipeline logs them and moves on.
package mail

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotConfigured indicates the SMTP settings are incomplete; delivery
// is silently skipped rather than attempted half-configured.
var ErrNotConfigured = errors.New("mail: SMTP not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// To is the raw MAIL_TO value, comma-separated.
	To string
}

// Mailer sends plain-text messages with file attachments.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

func (m *Mailer) recipients() []string {
	var out []string
	for _, addr := range strings.Split(m.cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Send composes and delivers the message. Attachment paths that cannot
// be read are logged and dropped, not fatal.
func (m *Mailer) Send(subject, body string, attachments []string) error {
	to := m.recipients()
	if m.cfg.Host == "" || m.cfg.Username == "" || m.cfg.Password == "" || m.cfg.From == "" || len(to) == 0 {
		return ErrNotConfigured
	}

	msg, err := m.buildMessage(subject, body, to, attachments)
	if err != nil {
		return err
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	// Port 465 is implicit TLS; anything else negotiates STARTTLS.
	if m.cfg.Port == "465" {
		return m.sendImplicitTLS(addr, auth, to, msg)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, to, msg); err != nil {
		return fmt.Errorf("mail: send via %s: %w", addr, err)
	}
	m.logger.Info("email sent", zap.Strings("to", to))
	return nil
}

func (m *Mailer) sendImplicitTLS(addr string, auth smtp.Auth, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close() //nolint:errcheck
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer client.Close() //nolint:errcheck

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("mail: quit: %w", err)
	}
	m.logger.Info("email sent", zap.Strings("to", to))
	return nil
}

// buildMessage renders a multipart/mixed MIME message: a text/plain body
// followed by base64-encoded attachments.
func (m *Mailer) buildMessage(subject, body string, to, attachments []string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="utf-8"`},
	})
	if err != nil {
		return nil, fmt.Errorf("mail: compose body: %w", err)
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("mail: compose body: %w", err)
	}

	for _, path := range attachments {
		raw, err := os.ReadFile(path)
		if err != nil {
			m.logger.Warn("could not attach file", zap.String("path", path), zap.Error(err))
			continue
		}

		name := filepath.Base(path)
		ctype := mime.TypeByExtension(filepath.Ext(path))
		if ctype == "" {
			ctype = "application/octet-stream"
		}

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf("%s; name=%q", ctype, name)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
		})
		if err != nil {
			return nil, fmt.Errorf("mail: compose attachment %s: %w", name, err)
		}

		encoded := base64.StdEncoding.EncodeToString(raw)
		// RFC 2045 line length limit.
		for len(encoded) > 0 {
			n := min(76, len(encoded))
			if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
				return nil, fmt.Errorf("mail: compose attachment %s: %w", name, err)
			}
			encoded = encoded[n:]
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("mail: finalize message: %w", err)
	}
	return buf.Bytes(), nil
}
