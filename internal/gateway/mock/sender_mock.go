package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// SenderMock mocks the gateway.Sender interface
type SenderMock struct {
	mock.Mock
}

// SendTemplate mocks the SendTemplate method
func (m *SenderMock) SendTemplate(ctx context.Context, from, to, templateSID string, variables map[string]string) error {
	args := m.Called(ctx, from, to, templateSID, variables)
	return args.Error(0)
}

// SendText mocks the SendText method
func (m *SenderMock) SendText(ctx context.Context, from, to, body string) error {
	args := m.Called(ctx, from, to, body)
	return args.Error(0)
}
