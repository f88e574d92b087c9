package server

import (
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/internal/reqctx"
	"gitlab.com/fieldion/api/missed-call-router/internal/validator"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
	"gitlab.com/fieldion/api/missed-call-router/pkg/utils"
)

// twimlEmpty acknowledges the webhook without instructing any reply. The
// customer-facing confirmation goes out through the REST API instead, so
// the gateway must never synthesize a second message from this response.
const twimlEmpty = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// handleWebhook receives the gateway's inbound SMS callback. It always
// answers 200 with an empty TwiML document: failures are recorded in the
// transaction log and surfaced through logs and metrics, never echoed back
// to the gateway where they would trigger redelivery or an error SMS.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := reqctx.WithRequestID(r.Context(), reqctx.New())
	log := logger.FromContext(ctx)

	defer utils.RecoverWithLog(ctx, "webhook dispatch")
	defer writeTwiML(w)

	if err := r.ParseForm(); err != nil {
		log.Warn("Failed to parse webhook form body", zap.Error(err))
		return
	}

	msg := model.InboundMessage{
		From:       r.PostFormValue("From"),
		To:         r.PostFormValue("To"),
		Body:       r.PostFormValue("Body"),
		MessageSID: r.PostFormValue("MessageSid"),
	}

	if err := validator.Validate(msg); err != nil {
		log.Warn("Webhook payload missing required fields",
			zap.Error(err),
			zap.String("message_sid", msg.MessageSID))
		return
	}

	outcome := s.dispatcher.HandleInbound(ctx, msg)

	log.Debug("Webhook request finished",
		zap.String("message_sid", msg.MessageSID),
		zap.Bool("matched", outcome.Matched),
		zap.Bool("duplicate", outcome.Duplicate))
}

func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(twimlEmpty))
}
