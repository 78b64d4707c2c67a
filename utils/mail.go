package utils

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends the signup welcome mail through SendGrid.
type Mailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	logger    *zap.Logger
}

func NewMailer(apiKey, fromName, fromEmail string, logger *zap.Logger) *Mailer {
	return &Mailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

func (m *Mailer) SendWelcome(ctx context.Context, name, email string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(name, email)
	subject := "Welcome to Autonomeal"

	greeting := name
	if greeting == "" {
		greeting = "there"
	}
	plainTextContent := fmt.Sprintf("Hi %s, your account is ready. Snap a photo of any dish and we'll find you the recipe.", greeting)
	htmlContent := fmt.Sprintf("<p>Hi %s,</p><p>Your account is ready. Snap a photo of any dish and we'll find you the recipe.</p>", greeting)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("send welcome mail: sendgrid status %d", response.StatusCode)
	}

	m.logger.Info("welcome mail sent", zap.String("email", email))
	return nil
}
