package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	Addr string // host:port
	From string
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// LogMailer stands in when SMTP is not configured.
type LogMailer struct {
	Log *zap.Logger
}

func (m *LogMailer) Send(to, subject, _ string) error {
	m.Log.Info("email (smtp not configured)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
