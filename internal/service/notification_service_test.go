package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
	"eudguide/internal/models"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNotificationDisabledWithoutAddresses(t *testing.T) {
	svc, err := NewNotificationService(context.Background(), "us-east-1", "", "EudGuide", "", logger.NewNop())
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendCertificateEmail(context.Background(), models.Profile{ID: "asha"}, models.RankSilver))
}

func TestCertificateEmail(t *testing.T) {
	ses := &fakeSES{}
	svc := newNotificationService(ses, "noreply@example.com", "EudGuide", "parent@example.com", logger.NewNop())

	profile := models.Profile{
		ID:   "asha",
		Name: "Asha <3",
		XP:   1010,
		Sessions: []models.StudySession{
			{ID: "s1", DurationMinutes: 25},
		},
	}
	require.NoError(t, svc.SendCertificateEmail(context.Background(), profile, models.RankSilver))

	require.Len(t, ses.inputs, 1)
	in := ses.inputs[0]
	assert.Equal(t, "EudGuide <noreply@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"parent@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Asha <3 earned the Silver certificate!", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Contains(t, aws.ToString(in.Content.Simple.Body.Html.Data), "Asha &lt;3")
	assert.Contains(t, aws.ToString(in.Content.Simple.Body.Text.Data), "1010 XP")
}

func TestCertificateEarnedLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ses := &fakeSES{err: errors.New("throttled")}
	svc := newNotificationService(ses, "noreply@example.com", "", "parent@example.com", logger.FromZap(zap.New(core)))

	svc.CertificateEarned(context.Background(), models.Profile{ID: "asha"}, models.RankGold)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "certificate notification failed", logs.All()[0].Message)
	assert.Equal(t, "noreply@example.com", aws.ToString(ses.inputs[0].FromEmailAddress))
}

func TestStoreNotifiesGuardian(t *testing.T) {
	h := newHarness(householdWithAsha())
	ses := &fakeSES{}
	h.store.SetRankObserver(newNotificationService(ses, "noreply@example.com", "EudGuide", "parent@example.com", logger.NewNop()))
	h.script(biometric.Result{Match: true, Confidence: 0.82})

	g, err := h.verify.Begin(creditAsha())
	require.NoError(t, err)
	require.NoError(t, g.SubmitPIN("4821"))
	require.NoError(t, g.SubmitBiometric(context.Background(), cameraFrame))

	assert.Len(t, ses.inputs, 1)
}
