package email

import (
	"context"
	"fmt"
)

// ResetMailer delivers password-reset tokens over SMTP.
type ResetMailer struct {
	Settings Settings
}

func (m *ResetMailer) SendPasswordReset(_ context.Context, toEmail, token string) error {
	msg := Message{
		ToEmail: toEmail,
		Subject: "Password reset",
		TextBody: fmt.Sprintf(
			"A password reset was requested for your account.\r\n\r\n"+
				"Reset token: %s\r\n\r\n"+
				"The token expires in one hour. If you did not request this, ignore this message.",
			token,
		),
	}
	if err := Send(m.Settings, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}
