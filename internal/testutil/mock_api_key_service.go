package testutil

import (
	"context"

	"github.com/haatos/simple-build/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) CreateAPIKey(ctx context.Context, description string) (*store.APIKey, string, error) {
	args := m.Called(ctx, description)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*store.APIKey), args.String(1), nil
}

func (m *MockAPIKeyService) VerifyAPIKey(ctx context.Context, token string) (*store.APIKey, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.APIKey), nil
}

func (m *MockAPIKeyService) DeleteAPIKey(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIKeyService) ListAPIKeys(ctx context.Context) ([]store.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.APIKey), nil
}
