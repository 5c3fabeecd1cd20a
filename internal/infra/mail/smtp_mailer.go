package mail

import (
	"context"
	"fmt"

	domainMail "course_outreach/internal/domain/mail"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = fmt.Errorf("message has no recipient")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers messages through one SMTP relay. Every Send opens its
// own connection, so it is safe for concurrent use.
type SMTPMailer struct {
	dialer   dialer
	from     string
	fromName string
	logger   *logrus.Entry
}

func NewSMTPMailer(host string, port int, username, password, from, fromName string, logger *logrus.Entry) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
		logger:   logger.WithField("component", "smtp_mailer"),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg domainMail.Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	if m.fromName != "" {
		gm.SetAddressHeader("From", m.from, m.fromName)
	} else {
		gm.SetHeader("From", m.from)
	}
	if msg.ToName != "" {
		gm.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		gm.SetHeader("To", msg.To)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	m.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Debug("Email handed to relay")
	return nil
}
