// Package mail sends the overdue reminders admins trigger from the dashboard.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	SenderName string
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Configured() bool { return s.cfg.Host != "" && s.cfg.From != "" }

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if !s.Configured() {
		return fmt.Errorf("mail: smtp not configured")
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("mail: bad recipient: %w", err)
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	raw := s.Render(m)

	// smtp.SendMail has no context; run it aside and give up on cancel
	done := make(chan error, 1)
	go func() { done <- s.send(addr, auth, s.cfg.From, []string{m.To}, raw) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Render builds the RFC 5322 message.
func (s *SMTPSender) Render(m Message) []byte {
	from := (&mail.Address{Name: s.cfg.SenderName, Address: s.cfg.From}).String()
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

const WarningSubject = "[Fabrication Lab] Tool return reminder"

type Warning struct {
	StudentName  string
	StudentEmail string
	ToolName     string
	BorrowedAt   time.Time
}

// Duration renders the borrow age in whole days, or "today".
func Duration(borrowedAt, now time.Time) string {
	days := int(now.Sub(borrowedAt).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// WarningMessage builds the overdue reminder for one open borrow.
func WarningMessage(w Warning, now time.Time) Message {
	body := fmt.Sprintf(`Dear %s,

Our records show the following tool is still on loan under your name:

Tool: %s
Borrowed since: %s
Borrow duration: %s

Please return it to the fabrication lab during opening hours.

If you have already returned it, please ignore this email. For questions, contact the lab staff.

Regards,
Fabrication Lab Team

---
This email was sent automatically by the lab tool kiosk.
`, w.StudentName, w.ToolName, w.BorrowedAt.UTC().Format("02-01-2006 15:04 MST"), Duration(w.BorrowedAt, now))

	return Message{To: w.StudentEmail, Subject: WarningSubject, Body: body}
}
