package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "today", Duration(now.Add(-3*time.Hour), now))
	assert.Equal(t, "1 day", Duration(now.Add(-30*time.Hour), now))
	assert.Equal(t, "5 days", Duration(now.AddDate(0, 0, -5), now))
	assert.Equal(t, "today", Duration(now.Add(time.Hour), now))
}

func TestWarningMessage(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	m := WarningMessage(Warning{
		StudentName:  "Budi Santoso",
		StudentEmail: "budi@example.com",
		ToolName:     "Hammer",
		BorrowedAt:   now.AddDate(0, 0, -3),
	}, now)

	assert.Equal(t, "budi@example.com", m.To)
	assert.Equal(t, WarningSubject, m.Subject)
	assert.Contains(t, m.Body, "Dear Budi Santoso,")
	assert.Contains(t, m.Body, "Tool: Hammer")
	assert.Contains(t, m.Body, "Borrowed since: 07-03-2024 12:00 UTC")
	assert.Contains(t, m.Body, "Borrow duration: 3 days")
}

func TestSMTPSenderSend(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "lab@example.com", Password: "pw", From: "lab@example.com", SenderName: "Fabrication Lab"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Equal(t, "lab@example.com", from)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "budi@example.com", Subject: "Hi", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"budi@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, `From: "Fabrication Lab" <lab@example.com>`+"\r\n"))
	assert.Contains(t, gotMsg, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline1\r\nline2"))

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }
	assert.EqualError(t, s.Send(context.Background(), Message{To: "budi@example.com"}), "535 auth failed")

	assert.Error(t, s.Send(context.Background(), Message{To: "not-an-address"}))
}

func TestSMTPSenderNotConfigured(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{})
	assert.False(t, s.Configured())
	assert.Error(t, s.Send(context.Background(), Message{To: "a@example.com"}))
}
