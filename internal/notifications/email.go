package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"docket/internal/config"
)

// mailSender is the part of *mail.Dialer the e-mail sink uses.
type mailSender interface {
	DialAndSend(m ...*mail.Message) error
}

type emailService struct {
	from   string
	to     []string
	sender mailSender
}

func newEmail(smtp config.SMTP, to []string) *emailService {
	d := mail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         smtp.Host,
		InsecureSkipVerify: smtp.SkipTLSVerify,
	}
	return &emailService{from: smtp.From, to: append([]string(nil), to...), sender: d}
}

func (e *emailService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := buildMail(e.from, e.to, msg)
	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification e-mail: %w", err)
	}
	return nil
}

func buildMail(from string, to []string, msg message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.title)
	if msg.priority == "high" {
		m.SetHeader("X-Priority", "1")
	}
	m.SetBody("text/plain", msg.body)
	m.AddAlternative("text/html", "<p>"+strings.ReplaceAll(html.EscapeString(msg.body), "\n", "<br>")+"</p>")
	return m
}
