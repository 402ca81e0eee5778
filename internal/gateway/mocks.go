package gateway

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

// MockClient mocks ClientInterface.
type MockClient struct {
	mock.Mock
}

var _ ClientInterface = (*MockClient)(nil)

func (m *MockClient) GetBalance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error) {
	args := m.Called(ctx, walletAddress, sessionProof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

func (m *MockClient) GetTopupRequirements(ctx context.Context) (*x402.PaymentRequirements, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*x402.PaymentRequirements), args.Error(1)
}

func (m *MockClient) SubmitTopup(ctx context.Context, paymentBase64 string) (*TopupResult, error) {
	args := m.Called(ctx, paymentBase64)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopupResult), args.Error(1)
}

func (m *MockClient) SponsorTransaction(ctx context.Context, transactionBase64, walletAddress, sessionProof string) (*SponsorResponse, error) {
	args := m.Called(ctx, transactionBase64, walletAddress, sessionProof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SponsorResponse), args.Error(1)
}
