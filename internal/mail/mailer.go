// Package mail sends transactional email.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/maderia/maderia/jobs"
)

// Sender delivers or enqueues one email. Domain services depend on this
// interface; failures are theirs to log and swallow.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// QueueSender enqueues mail onto the background queue instead of
// blocking the request on SMTP.
type QueueSender struct {
	client *jobs.Client
}

func NewQueueSender(client *jobs.Client) *QueueSender {
	return &QueueSender{client: client}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, html string) error {
	_, err := s.client.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	return err
}

// SMTPSender delivers mail directly over SMTP. The worker uses it to
// process queued tasks.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, html string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg.String()))
}

// NopSender drops mail. Used in tests and when SMTP is not configured.
type NopSender struct {
	Logger *slog.Logger
}

func (s NopSender) Send(_ context.Context, to, subject, _ string) error {
	if s.Logger != nil {
		s.Logger.Info("mail suppressed", "to", to, "subject", subject)
	}
	return nil
}
