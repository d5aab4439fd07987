package testutil

import (
	"context"

	"github.com/haatos/simple-build/internal/tool"
	"github.com/stretchr/testify/mock"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, inv tool.Invocation) (*tool.Output, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tool.Output), args.Error(1)
}

// Invocations returns every invocation passed to Execute, in call order.
func (m *MockExecutor) Invocations() []tool.Invocation {
	var out []tool.Invocation
	for _, call := range m.Calls {
		if call.Method == "Execute" {
			out = append(out, call.Arguments.Get(1).(tool.Invocation))
		}
	}
	return out
}
