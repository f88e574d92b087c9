package model

import (
	"time"

	"gitlab.com/fieldion/api/missed-call-router/internal/classify"
)

// RoutingOutcome is the result of processing one inbound message. It is
// produced exactly once per request and is the payload written to the
// transaction log.
type RoutingOutcome struct {
	Matched          bool    `json:"matched"`
	Duplicate        bool    `json:"duplicate,omitempty"` // true when the idempotency guard skipped processing
	Channel          Channel `json:"channel"`
	Urgency          string  `json:"urgency,omitempty"`
	Location         string  `json:"location,omitempty"`
	AlertSent        bool    `json:"alert_sent"`
	ConfirmationSent bool    `json:"confirmation_sent"`
	ErrorNote        string  `json:"error_note,omitempty"`
}

// LogEntry is the durable audit record for one processing attempt. It is
// written at most once per request and never mutated after the write.
type LogEntry struct {
	MessageSID       string
	From             string
	To               string
	Body             string
	Urgency          string
	Location         string
	Matched          bool
	Channel          Channel
	AlertSent        bool
	ConfirmationSent bool
	ErrorNote        string
	ProcessedAt      time.Time
}

// NewLogEntry combines an inbound message's identifying fields with its
// routing outcome into the record handed to the log writer. The body is
// stored cleaned, the same form the outbound messages carry.
func NewLogEntry(msg InboundMessage, outcome RoutingOutcome, processedAt time.Time) LogEntry {
	return LogEntry{
		MessageSID:       msg.MessageSID,
		From:             msg.From,
		To:               msg.To,
		Body:             classify.CleanReply(msg.Body),
		Urgency:          outcome.Urgency,
		Location:         outcome.Location,
		Matched:          outcome.Matched,
		Channel:          outcome.Channel,
		AlertSent:        outcome.AlertSent,
		ConfirmationSent: outcome.ConfirmationSent,
		ErrorNote:        outcome.ErrorNote,
		ProcessedAt:      processedAt,
	}
}
