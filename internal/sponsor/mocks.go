package sponsor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaslift/gaslift-backend/internal/ledger"
)

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) TopUp(ctx context.Context, req TopupRequest) (*TopupOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopupOutcome), args.Error(1)
}

func (m *MockOrchestrator) Sponsor(ctx context.Context, req SponsorRequest) (*SponsorOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SponsorOutcome), args.Error(1)
}

func (m *MockOrchestrator) Balance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error) {
	args := m.Called(ctx, walletAddress, sessionProof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

var (
	_ OrchestratorInterface = (*Orchestrator)(nil)
	_ OrchestratorInterface = (*MockOrchestrator)(nil)
)
