package email

import (
	"context"
	"fmt"

	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// EmailService sends report-ready notifications via SendGrid.
type EmailService struct {
	config *EmailConfig
	logger *logrus.Logger
	client *sendgrid.Client
}

// NewEmailService creates a new email service instance
func NewEmailService(config *EmailConfig, logger *logrus.Logger) (ports.EmailSender, error) {
	if config.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	return &EmailService{
		config: config,
		logger: logger,
		client: sendgrid.NewSendClient(config.SendGridAPIKey),
	}, nil
}

// SendReportReady notifies a recipient that a sprint's warmed report is
// available.
func (e *EmailService) SendReportReady(_ context.Context, to, sprintName, reportURL string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)
	subject := fmt.Sprintf("Sprint report ready: %s", sprintName)
	html := fmt.Sprintf(`<p>The report for sprint <strong>%s</strong> has been generated.</p><p><a href="%s">View the report</a></p>`, sprintName, reportURL)

	message := mail.NewSingleEmail(from, subject, recipient, "", html)
	response, err := e.client.Send(message)
	if err != nil {
		e.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).WithError(err).Error("Failed to send email")
		return fmt.Errorf("send report-ready email: %w", err)
	}
	if response.StatusCode >= 400 {
		e.logger.WithFields(logrus.Fields{"to": to, "status": response.StatusCode}).Error("Email provider rejected message")
		return fmt.Errorf("send report-ready email: provider returned %d", response.StatusCode)
	}
	e.logger.WithFields(logrus.Fields{"to": to, "sprint": sprintName}).Debug("report-ready email sent")
	return nil
}
