package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"gitlab.com/fieldion/api/missed-call-router/internal/model"
	"gitlab.com/fieldion/api/missed-call-router/internal/storage"
)

// --- ProfileRepo Mock ---

// ProfileRepoMock mocks the ProfileRepo interface
type ProfileRepoMock struct {
	mock.Mock
}

// FindByDestination mocks the FindByDestination method
func (m *ProfileRepoMock) FindByDestination(ctx context.Context, destination string) (*model.TradespersonProfile, error) {
	args := m.Called(ctx, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TradespersonProfile), args.Error(1)
}

// --- LogRepo Mock ---

// LogRepoMock mocks the LogRepo interface
type LogRepoMock struct {
	mock.Mock
	NotConfigured bool // set to simulate an unconfigured log store
}

// Append mocks the Append method
func (m *LogRepoMock) Append(ctx context.Context, entry model.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// ExistsByMessageSID mocks the ExistsByMessageSID method
func (m *LogRepoMock) ExistsByMessageSID(ctx context.Context, messageSID string) (bool, error) {
	args := m.Called(ctx, messageSID)
	return args.Bool(0), args.Error(1)
}

// Fields mocks the Fields method
func (m *LogRepoMock) Fields(ctx context.Context) ([]storage.FieldInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.FieldInfo), args.Error(1)
}

// Configured mocks the Configured method
func (m *LogRepoMock) Configured() bool {
	return !m.NotConfigured
}
