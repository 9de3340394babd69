package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(_ context.Context, to []string, subject string, htmlBody string) (Receipt, error) {
	if len(to) == 0 {
		return Receipt{}, errors.New("missing_recipient")
	}

	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	// SMTP does not hand back a provider id, so the Message-ID we stamp on
	// the outgoing mail doubles as the delivery id.
	id := newDeliveryID()
	headers := strings.Join([]string{
		"From: " + p.cfg.From,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		fmt.Sprintf("Message-ID: <%s@%s>", id, p.cfg.Host),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}, "\r\n")
	msg := []byte(headers + "\r\n\r\n" + htmlBody)

	if err := smtp.SendMail(addr, auth, p.cfg.From, to, msg); err != nil {
		return Receipt{}, err
	}
	return Receipt{DeliveryID: id}, nil
}
