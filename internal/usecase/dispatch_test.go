package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/apperrors"
	gatewaymock "gitlab.com/fieldion/api/missed-call-router/internal/gateway/mock"
	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	storagemock "gitlab.com/fieldion/api/missed-call-router/internal/storage/mock"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
)

func init() {
	// Initialize logger for tests
	logger.Log = zap.NewNop()
}

var testRouting = RoutingConfig{
	TemplateSID:  "HX-enquiry-template",
	WhatsAppFrom: "+14155238886",
}

func newFixture() (*storagemock.ProfileRepoMock, *storagemock.LogRepoMock, *gatewaymock.SenderMock, *DispatchService) {
	profiles := new(storagemock.ProfileRepoMock)
	logs := new(storagemock.LogRepoMock)
	sender := new(gatewaymock.SenderMock)
	service := NewDispatchService(profiles, logs, sender, testRouting)
	return profiles, logs, sender, service
}

func whatsappProfile() *model.TradespersonProfile {
	return &model.TradespersonProfile{
		RecordID:         "recWA1",
		BusinessName:     "Hartley Plumbing",
		PreferredChannel: "WhatsApp",
		WhatsAppNumber:   "+447700900001",
		MobileNumber:     "+447700900002",
		ExternalID:       "HP-17",
	}
}

func TestHandleInbound_WhatsAppEndToEnd(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{
		From:       "+447911123456",
		To:         "+441134960000",
		Body:       "URGENT — smell of gas at M1 1AE",
		MessageSID: "SM100",
	}

	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	logs.On("ExistsByMessageSID", mock.Anything, "SM100").Return(false, nil)
	sender.On("SendTemplate", mock.Anything, "whatsapp:+14155238886", "whatsapp:+447700900001", "HX-enquiry-template", mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, msg.To, msg.From, mock.Anything).Return(nil)
	logs.On("Append", mock.Anything, mock.AnythingOfType("model.LogEntry")).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.True(t, outcome.Matched)
	assert.Equal(t, model.ChannelWhatsApp, outcome.Channel)
	assert.Equal(t, "Urgent", outcome.Urgency)
	assert.Equal(t, "M1 1AE", outcome.Location)
	assert.True(t, outcome.AlertSent)
	assert.True(t, outcome.ConfirmationSent)
	assert.Empty(t, outcome.ErrorNote)

	// Template carries the fixed 4-slot variable payload.
	sender.AssertCalled(t, "SendTemplate", mock.Anything, "whatsapp:+14155238886", "whatsapp:+447700900001", "HX-enquiry-template",
		map[string]string{
			"1": "+447911123456",
			"2": "URGENT — smell of gas at M1 1AE",
			"3": "M1 1AE",
			"4": "Urgent",
		})

	// Exactly one log write with the success fields.
	logs.AssertNumberOfCalls(t, "Append", 1)
	entry := logs.Calls[len(logs.Calls)-1].Arguments.Get(1).(model.LogEntry)
	assert.Equal(t, "SM100", entry.MessageSID)
	assert.Equal(t, model.ChannelWhatsApp, entry.Channel)
	assert.True(t, entry.AlertSent)
	assert.True(t, entry.ConfirmationSent)
	assert.False(t, entry.ProcessedAt.IsZero())
}

func TestHandleInbound_UnknownLocationSubstitutedInPayload(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "boiler making noises"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)
	require.True(t, outcome.AlertSent)

	vars := sender.Calls[0].Arguments.Get(4).(map[string]string)
	assert.Equal(t, "area not provided", vars["3"])
	// The log keeps the raw sentinel, not the display string.
	assert.Equal(t, "Unknown", outcome.Location)
}

func TestHandleInbound_Duplicate(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hello", MessageSID: "SM200"}
	logs.On("ExistsByMessageSID", mock.Anything, "SM200").Return(true, nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.True(t, outcome.Duplicate)
	assert.False(t, outcome.AlertSent)
	profiles.AssertNotCalled(t, "FindByDestination", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	logs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestHandleInbound_GuardSkippedWithoutMessageSID(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "2"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.True(t, outcome.AlertSent)
	assert.Equal(t, "Needed Today", outcome.Urgency)
	logs.AssertNotCalled(t, "ExistsByMessageSID", mock.Anything, mock.Anything)
}

func TestHandleInbound_GuardFailurePropagates(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hi", MessageSID: "SM300"}
	logs.On("ExistsByMessageSID", mock.Anything, "SM300").Return(false, apperrors.NewLookup(errors.New("timeout"), "idempotency check for SM300 failed"))
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.NotEmpty(t, outcome.ErrorNote)
	assert.False(t, outcome.AlertSent)
	// The guard does not optimistically proceed to lookup or sends.
	profiles.AssertNotCalled(t, "FindByDestination", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInbound_Unmatched(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134999999", Body: "anyone there?", MessageSID: "SM400"}
	logs.On("ExistsByMessageSID", mock.Anything, "SM400").Return(false, nil)
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(nil, apperrors.ErrNotFound)
	logs.On("Append", mock.Anything, mock.AnythingOfType("model.LogEntry")).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.False(t, outcome.Matched)
	assert.Equal(t, model.ChannelNone, outcome.Channel)
	assert.False(t, outcome.AlertSent)
	assert.Contains(t, outcome.ErrorNote, "no tradesperson registered")

	sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	logs.AssertNumberOfCalls(t, "Append", 1)
	entry := logs.Calls[len(logs.Calls)-1].Arguments.Get(1).(model.LogEntry)
	assert.False(t, entry.Matched)
	assert.False(t, entry.AlertSent)
	assert.NotEmpty(t, entry.ErrorNote)
}

func TestHandleInbound_LookupFailureIsNotUnmatched(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hi"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(nil, apperrors.NewLookup(errors.New("502"), "profile lookup failed"))
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.False(t, outcome.Matched)
	assert.NotEmpty(t, outcome.ErrorNote)
	assert.NotContains(t, outcome.ErrorNote, "no tradesperson registered")
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInbound_SMSPreferenceAnyCase(t *testing.T) {
	for _, preference := range []string{"SMS", "sms", " Sms "} {
		profiles, logs, sender, service := newFixture()

		profile := whatsappProfile()
		profile.PreferredChannel = preference

		msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "quote for a new fence please"}
		profiles.On("FindByDestination", mock.Anything, msg.To).Return(profile, nil)
		sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		logs.On("Append", mock.Anything, mock.Anything).Return(nil)

		outcome := service.HandleInbound(context.Background(), msg)

		assert.Equal(t, model.ChannelSMS, outcome.Channel, "preference: %q", preference)
		assert.True(t, outcome.AlertSent)
		// The SMS path never touches the templated-send function.
		sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		alert := sender.Calls[0]
		assert.Equal(t, "SendText", alert.Method)
		assert.Equal(t, profile.MobileNumber, alert.Arguments.String(2))
		body := alert.Arguments.String(3)
		assert.Contains(t, body, msg.From)
		assert.Contains(t, body, "Quote")
	}
}

func TestChannelFor_DefaultsToWhatsApp(t *testing.T) {
	assert.Equal(t, model.ChannelWhatsApp, channelFor(""))
	assert.Equal(t, model.ChannelWhatsApp, channelFor("carrier pigeon"))
	assert.Equal(t, model.ChannelWhatsApp, channelFor("  WhatsApp "))
	assert.Equal(t, model.ChannelSMS, channelFor("SMS"))
}

func TestHandleInbound_AlertFailureIsolation(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "tap is leaking", MessageSID: "SM500"}
	logs.On("ExistsByMessageSID", mock.Anything, "SM500").Return(false, nil)
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.NewSend(errors.New("status 500"), "gateway rejected message"))
	logs.On("Append", mock.Anything, mock.AnythingOfType("model.LogEntry")).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.False(t, outcome.AlertSent)
	assert.False(t, outcome.ConfirmationSent)
	assert.NotEmpty(t, outcome.ErrorNote)

	// No confirmation is attempted after a failed alert.
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	logs.AssertNumberOfCalls(t, "Append", 1)
	entry := logs.Calls[len(logs.Calls)-1].Arguments.Get(1).(model.LogEntry)
	assert.False(t, entry.AlertSent)
	assert.False(t, entry.ConfirmationSent)
	assert.NotEmpty(t, entry.ErrorNote)
}

func TestHandleInbound_ConfirmationFailureKeepsAlertRecord(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "need someone today"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.NewSend(errors.New("status 429"), "gateway rejected message"))
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.True(t, outcome.AlertSent)
	assert.False(t, outcome.ConfirmationSent)
	assert.NotEmpty(t, outcome.ErrorNote)
}

func TestHandleInbound_MissingWhatsAppNumberIsConfigurationError(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	profile := whatsappProfile()
	profile.WhatsAppNumber = ""

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hi"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(profile, nil)
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.False(t, outcome.AlertSent)
	assert.Contains(t, outcome.ErrorNote, "WhatsApp")
	// Never a silent fallback to SMS.
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInbound_MissingTemplateIsConfigurationError(t *testing.T) {
	profiles, logs, sender, service := newFixture()
	service.routing.TemplateSID = ""

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hi"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	logs.On("Append", mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.False(t, outcome.AlertSent)
	assert.Contains(t, outcome.ErrorNote, "template")
	sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInbound_LogWriteFailureSurfacesButStillReturns(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{From: "+447911123456", To: "+441134960000", Body: "hello"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logs.On("Append", mock.Anything, mock.Anything).
		Return(apperrors.NewLogWrite(errors.New("status 503"), "record store rejected log append"))

	outcome := service.HandleInbound(context.Background(), msg)

	// Sends happened; the audit failure is reported in the outcome and the
	// best-effort second write's failure is swallowed.
	assert.True(t, outcome.AlertSent)
	assert.True(t, outcome.ConfirmationSent)
	assert.NotEmpty(t, outcome.ErrorNote)
	logs.AssertNumberOfCalls(t, "Append", 2)
}

func TestHandleInbound_LogEntryBodyIsCleaned(t *testing.T) {
	profiles, logs, sender, service := newFixture()

	msg := model.InboundMessage{
		From: "+447911123456",
		To:   "+441134960000",
		Body: " " + strings.Repeat("x", 600),
	}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	logs.On("Append", mock.Anything, mock.AnythingOfType("model.LogEntry")).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)
	require.True(t, outcome.AlertSent)

	entry := logs.Calls[len(logs.Calls)-1].Arguments.Get(1).(model.LogEntry)
	assert.Equal(t, strings.Repeat("x", 500), entry.Body)
}

func TestHandleInbound_UnconfiguredLogStoreSkipsGuardAndWrites(t *testing.T) {
	profiles, logs, sender, service := newFixture()
	logs.NotConfigured = true

	msg := model.InboundMessage{From: gofakeit.Phone(), To: "+441134960000", Body: gofakeit.Sentence(6), MessageSID: "SM600"}
	profiles.On("FindByDestination", mock.Anything, msg.To).Return(whatsappProfile(), nil)
	sender.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sender.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	outcome := service.HandleInbound(context.Background(), msg)

	assert.True(t, outcome.AlertSent)
	logs.AssertNotCalled(t, "ExistsByMessageSID", mock.Anything, mock.Anything)
	logs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
