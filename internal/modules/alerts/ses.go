// Package alerts delivers the daily trade summary email through Amazon SES.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"github.com/mmorris35/council/internal/domain"
)

// SESAPI is the slice of the SES client the notifier uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier implements domain.AlertNotifier over SES v2.
type SESNotifier struct {
	client SESAPI
	sender string
	log    zerolog.Logger
}

var _ domain.AlertNotifier = (*SESNotifier)(nil)

// NewSESNotifier creates the notifier
func NewSESNotifier(client SESAPI, sender string, log zerolog.Logger) *SESNotifier {
	return &SESNotifier{
		client: client,
		sender: sender,
		log:    log.With().Str("service", "alerts").Logger(),
	}
}

// Notify sends one summary email for the account's day. Errors are returned
// for logging; the caller treats delivery as fire-and-forget.
func (n *SESNotifier) Notify(ctx context.Context, account domain.Account, summaries []domain.RunSummary) error {
	if account.Email == "" {
		return fmt.Errorf("account %s has no email address", account.ID)
	}

	subject, body := composeSummary(summaries)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{account.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send summary email: %w", err)
	}

	n.log.Info().Str("account", account.ID).Msg("daily summary sent")
	return nil
}

// composeSummary renders the subject and plain-text body for a day's runs.
func composeSummary(summaries []domain.RunSummary) (string, string) {
	trades, failed := 0, 0
	for _, s := range summaries {
		trades += s.ExecutedTradeCount
		if s.Status == domain.RunFailed {
			failed++
		}
	}

	subject := fmt.Sprintf("Daily trading summary: %d trade(s) executed", trades)

	var b strings.Builder
	b.WriteString("Your personas traded today.\n\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s: %d trade(s), value %.2f -> %.2f",
			s.Persona, s.ExecutedTradeCount, s.ValueBefore, s.ValueAfter)
		if s.Status == domain.RunFailed {
			fmt.Fprintf(&b, " [FAILED: %s]", s.Error)
		}
		b.WriteString("\n")
	}
	if failed > 0 {
		fmt.Fprintf(&b, "\n%d run(s) failed; see the run log for details.\n", failed)
	}
	return subject, b.String()
}
