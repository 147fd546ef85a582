package queue

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Mail is a rendered plain text message.
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered mails.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// RenderRecoveryMail builds the recovery message for job.
func RenderRecoveryMail(from string, job RecoveryMail) Mail {
	var b strings.Builder
	name := job.Name
	if name == "" {
		name = job.Email
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("You are receiving this email because we received a password reset request for your account.\n\n")
	fmt.Fprintf(&b, "Reset password: %s\n\n", job.ResetURL)
	fmt.Fprintf(&b, "This password reset link will expire in %d minutes.\n\n", job.ExpiresInMinutes)
	b.WriteString("If you did not request a password reset, no further action is required.\n")
	return Mail{
		From:    from,
		To:      job.Email,
		Subject: "Reset Password Notification",
		Body:    b.String(),
	}
}

// SMTPMailer sends through a relay with optional PLAIN auth.
type SMTPMailer struct {
	Addr     string // host:port
	User     string
	Password string
}

func (s SMTPMailer) Send(_ context.Context, m Mail) error {
	var auth smtp.Auth
	if s.User != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i > 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.User, s.Password, host)
	}
	msg := "From: " + m.From + "\r\n" +
		"To: " + m.To + "\r\n" +
		"Subject: " + m.Subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + strings.ReplaceAll(m.Body, "\n", "\r\n")
	if err := smtp.SendMail(s.Addr, auth, m.From, []string{m.To}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// FileMailer appends mails to Dir/mail.log.  Used when no SMTP relay is
// configured.
type FileMailer struct {
	Dir string
	mu  sync.Mutex
}

func (f *FileMailer) Send(_ context.Context, m Mail) error {
	line := fmt.Sprintf("[%s] to=%s subject=%q\n%s\n", time.Now().UTC().Format(time.RFC3339), m.To, m.Subject, m.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendLine(f.Dir, "mail.log", line)
}

func appendLine(dir, name, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
