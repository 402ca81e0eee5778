package chain

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRPCClient mocks RPCClient.
type MockRPCClient struct {
	mock.Mock
}

var _ RPCClient = (*MockRPCClient)(nil)

func (m *MockRPCClient) LatestBlockhash(ctx context.Context) (*RecentBlockhash, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RecentBlockhash), args.Error(1)
}

func (m *MockRPCClient) GetTransaction(ctx context.Context, hash string) (*ConfirmedTransaction, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConfirmedTransaction), args.Error(1)
}
