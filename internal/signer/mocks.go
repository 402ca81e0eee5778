package signer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaslift/gaslift-backend/internal/chain"
)

// MockSigner mocks Signer.
type MockSigner struct {
	mock.Mock
}

var _ Signer = (*MockSigner)(nil)

func (m *MockSigner) Sign(ctx context.Context, envelope *chain.Envelope, creds Credentials) (*chain.Envelope, error) {
	args := m.Called(ctx, envelope, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Envelope), args.Error(1)
}

func (m *MockSigner) SignAndSubmit(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, error) {
	args := m.Called(ctx, envelope, creds)
	return args.String(0), args.Error(1)
}

// MockConfirmingSigner mocks ConfirmingSignerInterface.
type MockConfirmingSigner struct {
	mock.Mock
}

var _ ConfirmingSignerInterface = (*MockConfirmingSigner)(nil)

func (m *MockConfirmingSigner) SignSubmitAndRecover(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, *chain.Envelope, error) {
	args := m.Called(ctx, envelope, creds)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*chain.Envelope), args.Error(2)
}
