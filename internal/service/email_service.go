package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendPrizeNotification(ctx context.Context, toEmail, competitionName string, rank, prize int, idempotencyKey string) error
}

// NoopEmailService is used when email notifications are disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendPrizeNotification(ctx context.Context, toEmail, competitionName string, rank, prize int, idempotencyKey string) error {
	log.Printf("[EmailService] noop prize notification to=%s rank=%d prize=%d", toEmail, rank, prize)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// SendPrizeNotification отправляет призёру письмо с итогом соревнования.
// IdempotencyKey защищает от повторной отправки при рестарте финализации.
func (s *ResendEmailService) SendPrizeNotification(ctx context.Context, toEmail, competitionName string, rank, prize int, idempotencyKey string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: fmt.Sprintf("You placed #%d in %s", rank, competitionName),
		Text:    fmt.Sprintf("Congratulations! You finished #%d in %s and won %d credits.", rank, competitionName, prize),
		Html:    fmt.Sprintf("<p>Congratulations! You finished <strong>#%d</strong> in %s and won <strong>%d</strong> credits.</p>", rank, competitionName, prize),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	if _, err := s.client.Emails.SendWithOptions(ctx, params, options); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}
