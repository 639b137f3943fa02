package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trixelnet/contributor/pkg/tsc"
	"github.com/trixelnet/contributor/trixel"
)

// MockClient is a mock implementation of the tsc.Client interface for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) LookupTMS(ctx context.Context, id trixel.ID) (string, error) {
	args := m.Called(ctx, id)

	return args.String(0), args.Error(1)
}

func (m *MockClient) Register(ctx context.Context, tmsHost string, req tsc.RegisterRequest) (tsc.RegisterResponse, error) {
	args := m.Called(ctx, tmsHost, req)

	return args.Get(0).(tsc.RegisterResponse), args.Error(1)
}

func (m *MockClient) UpdateStation(ctx context.Context, tmsHost, stationID, token string, req tsc.RegisterRequest) error {
	args := m.Called(ctx, tmsHost, stationID, token, req)

	return args.Error(0)
}

func (m *MockClient) Submit(ctx context.Context, tmsHost, token string, id trixel.ID, req tsc.SubmitRequest) (tsc.SubmitResponse, error) {
	args := m.Called(ctx, tmsHost, token, id, req)

	return args.Get(0).(tsc.SubmitResponse), args.Error(1)
}

func (m *MockClient) DeleteStation(ctx context.Context, tmsHost, stationID, token string) error {
	args := m.Called(ctx, tmsHost, stationID, token)

	return args.Error(0)
}
