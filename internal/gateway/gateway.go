// Package gateway wraps the third-party messaging gateway's REST API for
// templated WhatsApp sends and plain text sends. Sends are fire-and-forget:
// no delivery receipts are awaited and nothing is retried.
package gateway

import "context"

// Sender is the outbound messaging surface the dispatcher depends on.
// Keeping it minimal means gateways are swappable without touching routing.
type Sender interface {
	// SendTemplate sends a templated message (the WhatsApp-style channel).
	// Addresses carry their channel prefix (e.g. "whatsapp:+44...").
	SendTemplate(ctx context.Context, from, to, templateSID string, variables map[string]string) error

	// SendText sends a plain text message (the SMS channel and the
	// customer confirmation).
	SendText(ctx context.Context, from, to, body string) error
}
