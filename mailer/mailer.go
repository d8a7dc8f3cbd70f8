// ABOUTME: Outbound email delivery for the reference server
// ABOUTME: Log, SMTP (gomail) and Gmail API mailers behind one interface
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/pipeboard/config"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the mailer named by cfg.Kind.
func New(ctx context.Context, cfg config.MailerConfig, logger zerolog.Logger) (Mailer, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp mailer needs smtp_host")
		}
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail), nil
	case "gmail":
		path := cfg.GmailToken
		if path == "" {
			path = TokenPath()
		}
		return NewGmailMailer(ctx, path)
	}
	return nil, fmt.Errorf("unknown mailer kind: %s", cfg.Kind)
}

// compose builds the MIME message shared by the SMTP and Gmail mailers.
func compose(msg Message, defaultFrom string) *gomail.Message {
	from := msg.From
	if from == "" {
		from = defaultFrom
	}

	m := gomail.NewMessage()
	if from != "" {
		m.SetHeader("From", from)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m
}

// LogMailer only logs messages. It is the default for local use.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info().
		Str("from", msg.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body)).
		Msg("email not delivered (log mailer)")
	return nil
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(compose(msg, m.from)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
