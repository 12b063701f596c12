package service

import (
	"fmt"
	"log"
	"net/smtp"
	"sync"
)

// ==============================================
// MAILER
// ==============================================

// Mailer delivers the password-reset OTP out-of-band. The fake
// implementation is selected by configuration for development and tests.
type Mailer interface {
	SendOTP(to, username, otp string) error
}

func otpMailContent(username, otp string) (subject, body string) {
	subject = "Password reset Request"
	body = fmt.Sprintf(`Hello %s,

We received a request to reset your password.

Your one-time passcode is: %s

The code expires in 1 minute. If you didn't request this, please ignore
this email and your password will remain unchanged.
`, username, otp)
	return subject, body
}

// ==============================================
// SMTP MAILER
// ==============================================

// SMTPMailer sends real mail through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendOTP(to, username, otp string) error {
	subject, body := otpMailContent(username, otp)

	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\n\r\n%s", to, m.from, subject, body))
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	return nil
}

// ==============================================
// FAKE MAILER
// ==============================================

// SentMail is one message recorded by the fake mailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
	OTP     string
}

// FakeMailer records messages instead of sending them.
type FakeMailer struct {
	mu   sync.Mutex
	sent []SentMail
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) SendOTP(to, username, otp string) error {
	subject, body := otpMailContent(username, otp)

	m.mu.Lock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body, OTP: otp})
	m.mu.Unlock()

	log.Printf("[FAKE MAIL] to=%s subject=%q", to, subject)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *FakeMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}
