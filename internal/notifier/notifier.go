package notifier

import (
	"fmt"
	"log"
	"net/smtp"
)

// Notifier delivers account emails. Implementations may be swapped for other
// channels without touching the consumer.
type Notifier interface {
	SendVerificationCode(email, displayName, code string) error
	SendPasswordResetCode(email, displayName, code string) error
}

// ConsoleNotifier logs the email instead of sending it. Default in
// development setups without SMTP credentials.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) SendVerificationCode(email, displayName, code string) error {
	log.Printf("[notify] verification code for %s <%s>: %s", displayName, email, code)
	return nil
}

func (c *ConsoleNotifier) SendPasswordResetCode(email, displayName, code string) error {
	log.Printf("[notify] password reset code for %s <%s>: %s", displayName, email, code)
	return nil
}

// SMTPNotifier sends mail through a plain SMTP relay.
type SMTPNotifier struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

func NewSMTP(host string, port int, username, password, from string) *SMTPNotifier {
	n := &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		n.auth = smtp.PlainAuth("", username, password, host)
	}
	return n
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.from, to, subject, body)
	if err := smtp.SendMail(n.addr, n.auth, n.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (n *SMTPNotifier) SendVerificationCode(email, displayName, code string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour verification code is %s.\n", displayName, code)
	return n.send(email, "Verify your email", body)
}

func (n *SMTPNotifier) SendPasswordResetCode(email, displayName, code string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour password reset code is %s.\n", displayName, code)
	return n.send(email, "Reset your password", body)
}
