//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/shswrite/internal/types"
)

// MockServer 实现 types.ServerInterface 的 mock
type MockServer struct {
	mock.Mock
}

func (m *MockServer) IsMaintenanceMode() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockServer) GetOnlineCount() int {
	args := m.Called()
	return args.Int(0)
}

// MockRoundObserver 实现 types.RoundObserver 的 mock
type MockRoundObserver struct {
	mock.Mock
}

func (m *MockRoundObserver) RoundStarted(ctx context.Context, ev types.RoundStarted) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockRoundObserver) RoundFinished(ctx context.Context, res types.RoundResult) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}
