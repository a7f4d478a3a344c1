package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// SMTP sends OTP mail through a plain SMTP relay.
type SMTP struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

func (m *SMTP) SendOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"From: BlockVote <%s>\r\nTo: %s\r\nSubject: Your OTP Code\r\n\r\n"+
			"Your login verification code is %s. It expires in 5 minutes.\r\n",
		m.cfg.User, to, code,
	)

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.cfg.User, []string{to}, []byte(body))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: send otp: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
