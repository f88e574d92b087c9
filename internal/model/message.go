package model

// InboundMessage is one text message delivered to the public receiving
// address, as parsed from the gateway's form-encoded webhook POST. It is
// immutable once received and discarded when the request completes.
type InboundMessage struct {
	From       string `json:"from" validate:"required"`
	To         string `json:"to" validate:"required"`
	Body       string `json:"body"`                  // absent body is treated as empty
	MessageSID string `json:"message_sid,omitempty"` // optional; idempotency check is skipped without it
}
