package mailer

// Service sends the transactional emails the API needs. Delivery transport is
// a collaborator; callers only see errors.
type Service interface {
	SendWelcome(toEmail, toName, profileURL string) error
	SendPasswordReset(toEmail, toName, resetURL string) error
}
