package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/upb/tender-guardian/config"
	"go.uber.org/zap"
)

// Mailer delivers notification emails. Send reports delivery success;
// notifications are best-effort and never fail the operation that
// triggered them.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, htmlBody string) bool
}

// SMTPMailer sends mail over SMTP with STARTTLS. When no SMTP user is
// configured it runs in simulation mode: messages are logged, not sent,
// and Send reports success.
type SMTPMailer struct {
	host      string
	port      int
	user      string
	password  string
	fromEmail string
	logger    *zap.Logger
}

// NewSMTPMailer creates a mailer from SMTP configuration
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:      cfg.Host,
		port:      cfg.Port,
		user:      cfg.User,
		password:  cfg.Password,
		fromEmail: cfg.FromEmail,
		logger:    logger,
	}
}

// Simulating reports whether the mailer logs instead of sending
func (m *SMTPMailer) Simulating() bool {
	return m.user == ""
}

// Send delivers a notification email. The plain body is always attached;
// htmlBody is optional.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body, htmlBody string) bool {
	if m.Simulating() {
		m.logger.Info("email simulation",
			zap.String("to", to),
			zap.String("subject", subject))
		m.logger.Debug("email simulation body", zap.String("body", body))
		return true
	}

	msg, err := m.buildMessage(to, subject, body, htmlBody)
	if err != nil {
		m.logger.Error("failed to build email", zap.Error(err))
		return false
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)

	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, m.fromEmail, []string{to}, msg)
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to),
			zap.Error(err))
		return false
	}

	m.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject))
	return true
}

// buildMessage assembles a multipart/alternative MIME message
func (m *SMTPMailer) buildMessage(to, subject, body, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.fromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	fmt.Fprintf(&buf, "\r\n")

	plain, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := plain.Write([]byte(body)); err != nil {
		return nil, err
	}

	if htmlBody != "" {
		html, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/html; charset=utf-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := html.Write([]byte(htmlBody)); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
