package reqctx

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Key for request ID in context
type contextKey string

const requestIDKey contextKey = "requestID"

// ErrNoRequestID is returned when no request ID is found in context
var ErrNoRequestID = errors.New("no request ID found in context")

// New generates a fresh request ID.
func New() string {
	return uuid.NewString()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromContext extracts the request ID from the context
func FromContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestID
	}
	return requestID, nil
}
