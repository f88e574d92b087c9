package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/apperrors"
	"gitlab.com/fieldion/api/missed-call-router/internal/classify"
	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/internal/observer"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
)

// route runs the routing decision for one inbound message: resolve the
// profile, classify the text, select a channel, send the alert, then the
// confirmation. The confirmation is attempted only after a successful
// alert; an alert failure aborts with the underlying send error.
func (s *DispatchService) route(ctx context.Context, msg model.InboundMessage) (model.RoutingOutcome, error) {
	log := logger.FromContext(ctx)

	profile, err := s.profiles.FindByDestination(ctx, msg.To)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Info("No tradesperson matches destination", zap.String("to", msg.To))
			return model.RoutingOutcome{
				Matched:   false,
				Channel:   model.ChannelNone,
				ErrorNote: "no tradesperson registered for " + msg.To,
			}, nil
		}
		return model.RoutingOutcome{Channel: model.ChannelNone}, err
	}

	urgency := classify.DetectUrgency(msg.Body)
	location := classify.ExtractLocation(msg.Body)
	reply := classify.CleanReply(msg.Body)

	outcome := model.RoutingOutcome{
		Matched:  true,
		Channel:  channelFor(profile.PreferredChannel),
		Urgency:  string(urgency),
		Location: location,
	}

	log.Info("Routing decision made",
		zap.String("record_id", profile.RecordID),
		zap.String("channel", string(outcome.Channel)),
		zap.String("urgency", string(urgency)),
		zap.String("location", location),
	)

	var sendErr error
	switch outcome.Channel {
	case model.ChannelSMS:
		sendErr = s.sendSMSAlert(ctx, profile, msg, reply, location, urgency)
	default:
		sendErr = s.sendWhatsAppAlert(ctx, profile, msg, reply, location, urgency)
	}
	if sendErr != nil {
		observer.IncSendFailure("alert")
		return outcome, sendErr
	}
	outcome.AlertSent = true

	if err := s.sendConfirmation(ctx, msg, profile); err != nil {
		observer.IncSendFailure("confirmation")
		return outcome, err
	}
	outcome.ConfirmationSent = true

	return outcome, nil
}

// channelFor selects the notification channel from the stored preference.
// The comparison is trimmed and case-insensitive.
func channelFor(preferred string) model.Channel {
	switch strings.ToLower(strings.TrimSpace(preferred)) {
	case "sms":
		return model.ChannelSMS
	case "whatsapp":
		return model.ChannelWhatsApp
	default:
		// Unset or unrecognized preferences route to WhatsApp. This is the
		// documented default channel, never a silent fallback from a
		// misconfigured WhatsApp profile.
		return model.ChannelWhatsApp
	}
}

// sendWhatsAppAlert validates the WhatsApp requirements and sends the
// templated alert. Missing pieces are ConfigurationErrors; the decision
// never falls back to SMS.
func (s *DispatchService) sendWhatsAppAlert(ctx context.Context, profile *model.TradespersonProfile, msg model.InboundMessage, reply, location string, urgency classify.Urgency) error {
	if profile.WhatsAppNumber == "" {
		return apperrors.NewConfiguration("profile %s prefers WhatsApp but has no WhatsApp number", profile.RecordID)
	}
	if s.routing.TemplateSID == "" {
		return apperrors.NewConfiguration("gateway template identifier is not set")
	}
	if s.routing.WhatsAppFrom == "" {
		return apperrors.NewConfiguration("gateway WhatsApp sending address is not set")
	}

	variables := map[string]string{
		"1": msg.From,
		"2": reply,
		"3": displayLocation(location),
		"4": string(urgency),
	}
	return s.sender.SendTemplate(ctx,
		"whatsapp:"+s.routing.WhatsAppFrom,
		"whatsapp:"+profile.WhatsAppNumber,
		s.routing.TemplateSID,
		variables,
	)
}

// sendSMSAlert builds the human-readable alert body and sends it to the
// tradesperson's mobile from the number the customer texted.
func (s *DispatchService) sendSMSAlert(ctx context.Context, profile *model.TradespersonProfile, msg model.InboundMessage, reply, location string, urgency classify.Urgency) error {
	if profile.MobileNumber == "" {
		return apperrors.NewConfiguration("profile %s prefers SMS but has no mobile number", profile.RecordID)
	}

	body := fmt.Sprintf("New enquiry from %s\nMessage: %s\nLocation: %s\nUrgency: %s",
		msg.From, reply, displayLocation(location), urgency)
	return s.sender.SendText(ctx, msg.To, profile.MobileNumber, body)
}

// sendConfirmation acknowledges receipt to the customer from the number
// they originally texted.
func (s *DispatchService) sendConfirmation(ctx context.Context, msg model.InboundMessage, profile *model.TradespersonProfile) error {
	body := fmt.Sprintf("Thanks for your message. %s has been notified and will be in touch shortly.", profile.BusinessName)
	return s.sender.SendText(ctx, msg.To, msg.From, body)
}

// displayLocation substitutes a readable phrase for the Unknown sentinel in
// outbound message bodies.
func displayLocation(location string) string {
	if location == classify.LocationUnknown {
		return "area not provided"
	}
	return location
}
