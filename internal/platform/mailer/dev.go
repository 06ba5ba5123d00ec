package mailer

import "github.com/trailborn/tours-api/pkg/logger"

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendWelcome(toEmail, toName, profileURL string) error {
	logger.Info("[DEV MAIL] welcome email",
		"to", toEmail,
		"name", toName,
		"profile_url", profileURL,
	)
	return nil
}

func (d *DevMailer) SendPasswordReset(toEmail, toName, resetURL string) error {
	logger.Info("[DEV MAIL] password reset email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
	)
	return nil
}
