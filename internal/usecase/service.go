package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/fieldion/api/missed-call-router/internal/gateway"
	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/internal/observer"
	"gitlab.com/fieldion/api/missed-call-router/internal/storage"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
	"gitlab.com/fieldion/api/missed-call-router/pkg/utils"
)

// RoutingConfig carries the gateway settings the routing decision needs.
type RoutingConfig struct {
	TemplateSID  string // WhatsApp content template identifier
	WhatsAppFrom string // sending address for templated alerts
}

// DispatchService sequences the missed-call text pipeline: idempotency
// guard, profile lookup, routing decision, alert and confirmation sends,
// and the transaction log write. It is the single error boundary; component
// errors propagate uncaught until they reach HandleInbound.
type DispatchService struct {
	profiles storage.ProfileRepo
	logs     storage.LogRepo
	sender   gateway.Sender
	routing  RoutingConfig
}

// NewDispatchService creates a dispatch service with injected collaborators.
func NewDispatchService(profiles storage.ProfileRepo, logs storage.LogRepo, sender gateway.Sender, routing RoutingConfig) *DispatchService {
	return &DispatchService{
		profiles: profiles,
		logs:     logs,
		sender:   sender,
		routing:  routing,
	}
}

// HandleInbound processes one inbound message to completion and always
// returns an outcome, regardless of which stage failed. The transport layer
// acknowledges with it; it never sees an error.
func (s *DispatchService) HandleInbound(ctx context.Context, msg model.InboundMessage) model.RoutingOutcome {
	start := utils.Now()
	log := logger.FromContext(ctx)
	observer.IncInboundReceived()

	if s.guardActive(msg) {
		seen, err := s.logs.ExistsByMessageSID(ctx, msg.MessageSID)
		if err != nil {
			// The guard never silently claims "not processed": the check
			// failure propagates here and ends the request as an error.
			return s.failed(ctx, msg, model.RoutingOutcome{Channel: model.ChannelNone}, err, start)
		}
		if seen {
			log.Info("Inbound message already processed, skipping",
				zap.String("message_sid", msg.MessageSID))
			observer.ObserveOutcome("duplicate", string(model.ChannelNone), time.Since(start))
			return model.RoutingOutcome{Duplicate: true, Channel: model.ChannelNone}
		}
	}

	outcome, err := s.route(ctx, msg)
	if err != nil {
		return s.failed(ctx, msg, outcome, err, start)
	}

	if err := s.writeLog(ctx, msg, outcome); err != nil {
		return s.failed(ctx, msg, outcome, err, start)
	}

	label := "matched"
	if !outcome.Matched {
		label = "unmatched"
	}
	observer.ObserveOutcome(label, string(outcome.Channel), time.Since(start))
	log.Info("Inbound message processed",
		zap.String("message_sid", msg.MessageSID),
		zap.Bool("matched", outcome.Matched),
		zap.String("channel", string(outcome.Channel)),
		zap.Bool("alert_sent", outcome.AlertSent),
		zap.Bool("confirmation_sent", outcome.ConfirmationSent),
	)
	return outcome
}

// guardActive reports whether the idempotency guard applies: it is skipped
// entirely when the message carries no identifier or the log store is not
// configured.
func (s *DispatchService) guardActive(msg model.InboundMessage) bool {
	return msg.MessageSID != "" && s.logs != nil && s.logs.Configured()
}

// writeLog appends the transaction record for a completed request. A write
// failure here is a hard error: the log is on the audit path.
func (s *DispatchService) writeLog(ctx context.Context, msg model.InboundMessage, outcome model.RoutingOutcome) error {
	if s.logs == nil || !s.logs.Configured() {
		logger.FromContext(ctx).Warn("Log store not configured, skipping transaction log write")
		return nil
	}
	if err := s.logs.Append(ctx, model.NewLogEntry(msg, outcome, utils.Now())); err != nil {
		observer.IncLogWriteFailure()
		return err
	}
	return nil
}

// failed is the error boundary. It records the failure with one best-effort
// audit entry and returns an outcome so the transport can still acknowledge.
// A failure of the best-effort write itself is swallowed (operator-visible
// in logs only) so the acknowledgment path is never blocked.
func (s *DispatchService) failed(ctx context.Context, msg model.InboundMessage, outcome model.RoutingOutcome, cause error, start time.Time) model.RoutingOutcome {
	log := logger.FromContext(ctx)
	log.Error("Inbound message processing failed",
		zap.String("message_sid", msg.MessageSID),
		zap.String("from", msg.From),
		zap.Error(cause),
	)

	outcome.ErrorNote = cause.Error()
	if outcome.Channel == "" {
		outcome.Channel = model.ChannelNone
	}

	if s.logs != nil && s.logs.Configured() {
		if werr := s.logs.Append(ctx, model.NewLogEntry(msg, outcome, utils.Now())); werr != nil {
			observer.IncLogWriteFailure()
			log.Warn("Best-effort failure log write failed", zap.Error(werr))
		}
	}

	observer.ObserveOutcome("error", string(outcome.Channel), time.Since(start))
	return outcome
}
