package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmorris35/council/internal/domain"
)

type stubSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (s *stubSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.inputs = append(s.inputs, params)
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func sampleSummaries() []domain.RunSummary {
	return []domain.RunSummary{
		{Persona: domain.PersonaValue, Status: domain.RunDone, ExecutedTradeCount: 2, ValueBefore: 100000, ValueAfter: 100500},
		{Persona: domain.PersonaMomentum, Status: domain.RunFailed, Error: "provider down"},
	}
}

func TestNotifySendsEmail(t *testing.T) {
	ses := &stubSES{}
	n := NewSESNotifier(ses, "alerts@example.com", zerolog.Nop())

	account := domain.Account{ID: "a1", Email: "alice@example.com", AlertsEnabled: true}
	require.NoError(t, n.Notify(context.Background(), account, sampleSummaries()))

	require.Len(t, ses.inputs, 1)
	input := ses.inputs[0]
	assert.Equal(t, "alerts@example.com", *input.FromEmailAddress)
	assert.Equal(t, []string{"alice@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Content.Simple.Subject.Data, "2 trade(s)")

	body := *input.Content.Simple.Body.Text.Data
	assert.Contains(t, body, "value")
	assert.Contains(t, body, "FAILED: provider down")
}

func TestNotifyRequiresEmail(t *testing.T) {
	n := NewSESNotifier(&stubSES{}, "alerts@example.com", zerolog.Nop())

	err := n.Notify(context.Background(), domain.Account{ID: "a1"}, sampleSummaries())
	assert.Error(t, err)
}

func TestNotifyWrapsSendFailure(t *testing.T) {
	ses := &stubSES{err: errors.New("throttled")}
	n := NewSESNotifier(ses, "alerts@example.com", zerolog.Nop())

	account := domain.Account{ID: "a1", Email: "alice@example.com"}
	err := n.Notify(context.Background(), account, sampleSummaries())
	assert.ErrorContains(t, err, "throttled")
}
