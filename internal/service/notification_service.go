package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"eudguide/internal/logger"
	"eudguide/internal/models"
)

type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotificationService e-mails the guardian via Amazon SES when a child earns a certificate
type NotificationService struct {
	client    emailSender
	fromEmail string
	fromName  string
	toEmail   string
	enabled   bool
	log       *logger.Logger
}

// NewNotificationService creates the service. It is disabled when either address is empty.
func NewNotificationService(ctx context.Context, awsRegion, fromEmail, fromName, guardianEmail string, log *logger.Logger) (*NotificationService, error) {
	if fromEmail == "" || guardianEmail == "" {
		log.Info("certificate notifications disabled: SES_FROM_EMAIL or GUARDIAN_EMAIL not configured")
		return &NotificationService{enabled: false, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("certificate notifications enabled", "from", fromEmail, "region", awsRegion)
	return newNotificationService(sesv2.NewFromConfig(cfg), fromEmail, fromName, guardianEmail, log), nil
}

func newNotificationService(client emailSender, fromEmail, fromName, guardianEmail string, log *logger.Logger) *NotificationService {
	return &NotificationService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   guardianEmail,
		enabled:   true,
		log:       log,
	}
}

// IsEnabled returns whether e-mails are sent
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// CertificateEarned sends the notification. Failures are logged, never returned.
func (s *NotificationService) CertificateEarned(ctx context.Context, profile models.Profile, rank models.Rank) {
	if err := s.SendCertificateEmail(ctx, profile, rank); err != nil {
		s.log.Warn("certificate notification failed", "profile_id", profile.ID, "level", rank, "error", err)
	}
}

// SendCertificateEmail tells the guardian which rank a child reached
func (s *NotificationService) SendCertificateEmail(ctx context.Context, profile models.Profile, rank models.Rank) error {
	if !s.enabled {
		s.log.Debug("skipping certificate e-mail (service disabled)", "profile_id", profile.ID)
		return nil
	}

	subject := fmt.Sprintf("%s earned the %s certificate!", profile.Name, rank)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2>%s reached %s</h2>
	<p>%s now has %d XP after %d verified study sessions (%d minutes in total).</p>
	<p>Open the parent dashboard to see the full history.</p>
</body>
</html>
`, html.EscapeString(profile.Name), rank, html.EscapeString(profile.Name), profile.XP, len(profile.Sessions), profile.TotalMinutes())

	textBody := fmt.Sprintf(`%s reached %s

%s now has %d XP after %d verified study sessions (%d minutes in total).

Open the parent dashboard to see the full history.
`, profile.Name, rank, profile.Name, profile.XP, len(profile.Sessions), profile.TotalMinutes())

	return s.sendEmail(ctx, subject, htmlBody, textBody)
}

func (s *NotificationService) sendEmail(ctx context.Context, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", s.toEmail, err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.log.Info("email sent", "subject", subject, "message_id", messageID)
	return nil
}
