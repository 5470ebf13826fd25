package notify

import (
	"context"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
)

// Dialer opens an SMTP session. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// Email sends each message as an HTML mail.
type Email struct {
	dialer  Dialer
	from    string
	to      []string
	subject string
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// NewEmail returns an Email notifier dialing cfg's SMTP server.
func NewEmail(cfg EmailConfig) *Email {
	return NewEmailWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

// NewEmailWithDialer is NewEmail with an explicit dialer.
func NewEmailWithDialer(d Dialer, cfg EmailConfig) *Email {
	subject := cfg.Subject
	if subject == "" {
		subject = "knowledge-agent"
	}
	return &Email{dialer: d, from: cfg.From, to: cfg.To, subject: subject}
}

// Send implements Notifier.
func (e *Email) Send(_ context.Context, text string) error {
	if len(e.to) == 0 {
		return errors.NewValidationError("to", "", "no email recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", e.subject+": "+firstLine(StripTags(text)))
	m.SetBody("text/plain", StripTags(text))
	m.AddAlternative("text/html", strings.ReplaceAll(text, "\n", "<br>\n"))

	s, err := e.dialer.Dial()
	if err != nil {
		return errors.WrapAPI("smtp", 0, err)
	}
	defer func() { _ = s.Close() }()

	if err := gomail.Send(s, m); err != nil {
		return errors.WrapAPI("smtp", 0, err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
