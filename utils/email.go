package utils

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridMailer sends transactional email through SendGrid.
type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
	logger   *zap.Logger
}

func NewSendGridMailer(apiKey, from string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{apiKey: apiKey, from: from, fromName: "DreamSoul", logger: logger}
}

// SendEmail sends an email using SendGrid
func (m *SendGridMailer) SendEmail(toName, toEmail, subject, textContent, htmlContent string) error {
	if m.apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}

	from := mail.NewEmail(m.fromName, m.from)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(m.apiKey)

	response, err := client.Send(message)
	if err != nil {
		m.logger.Warn("sendgrid send failed", zap.String("to", toEmail), zap.Error(err))
		return err
	}

	if response.StatusCode >= 400 {
		m.logger.Warn("sendgrid rejected message",
			zap.String("to", toEmail),
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body))
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	m.logger.Info("email sent", zap.String("to", toEmail), zap.String("subject", subject))
	return nil
}

// NopMailer drops every message. Used when SendGrid is not configured.
type NopMailer struct{}

func (NopMailer) SendEmail(toName, toEmail, subject, textContent, htmlContent string) error {
	return nil
}
