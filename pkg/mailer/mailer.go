package mailer

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer sends transactional mail over SMTP. Without an SMTP host
// configured it logs the message instead, which is the development
// behavior for password reset links.
type Mailer struct {
	host     string
	port     int
	from     string
	user     string
	password string
}

func New(host string, port int, from, user, password string) *Mailer {
	return &Mailer{host: host, port: port, from: from, user: user, password: password}
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		log.Printf("[MAIL] (dev) to=%s subject=%q\n%s", to, subject, body)
		return nil
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.from, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}
