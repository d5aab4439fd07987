package service

import (
	"context"

	"github.com/haatos/simple-build/internal/store"
	"github.com/haatos/simple-build/internal/target"
	"github.com/stretchr/testify/mock"
)

type MockAPIKeyStore struct {
	mock.Mock
}

func (m *MockAPIKeyStore) CreateAPIKey(ctx context.Context, hash, description string) (*store.APIKey, error) {
	args := m.Called(ctx, hash, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.APIKey), nil
}

func (m *MockAPIKeyStore) ReadAPIKeyByID(ctx context.Context, id int64) (*store.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.APIKey), nil
}

func (m *MockAPIKeyStore) DeleteAPIKey(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIKeyStore) ListAPIKeys(ctx context.Context) ([]store.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.APIKey), nil
}

type MockUUIDGenerator struct {
	mock.Mock
}

func (m *MockUUIDGenerator) GenerateUUID() string {
	args := m.Called()
	return args.Get(0).(string)
}

type MockSecretStore struct {
	mock.Mock
}

func (m *MockSecretStore) UpsertSecret(ctx context.Context, name, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

func (m *MockSecretStore) ReadSecret(ctx context.Context, name string) (*store.Secret, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Secret), nil
}

func (m *MockSecretStore) DeleteSecret(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockSecretStore) ListSecrets(ctx context.Context) ([]store.Secret, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Secret), nil
}

type MockBuildService struct {
	mock.Mock
}

func (m *MockBuildService) Targets() ([]target.Target, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]target.Target), nil
}

func (m *MockBuildService) Prepare(ctx context.Context, req RunRequest) (*PreparedRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PreparedRun), nil
}

func (m *MockBuildService) Execute(ctx context.Context, pr *PreparedRun) *target.Report {
	args := m.Called(ctx, pr)
	return args.Get(0).(*target.Report)
}

func (m *MockBuildService) Finish(pr *PreparedRun, status store.RunStatus, exitCode int64) {
	m.Called(pr, status, exitCode)
	pr.Run.Status = status
}

func (m *MockBuildService) GetRunByUUID(ctx context.Context, id string) (*store.Run, []store.TargetResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*store.Run), args.Get(1).([]store.TargetResult), nil
}

func (m *MockBuildService) ListLatestRuns(ctx context.Context, limit int64) ([]store.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Run), nil
}
