// Package signer wraps the custodial wallet service that turns an unsigned
// transaction into a broadcastable signed one. The service in production only
// exposes sign-and-broadcast, so the confirmation-polling recovery of the
// exact on-chain bytes lives here too, isolated from the orchestrator.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaslift/gaslift-backend/internal/chain"
)

// ErrSignOnlyUnsupported is returned by signers that can only sign and
// broadcast in one step.
var ErrSignOnlyUnsupported = errors.New("signer does not support sign-only operation")

// Credentials authorize spending from a wallet. The session proof is a
// separate trust boundary from the bearer credential that authorizes calling
// this service.
type Credentials struct {
	WalletAddress string
	SessionProof  string
}

// Validate checks the credentials are complete.
func (c Credentials) Validate() error {
	if c.WalletAddress == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}
	if c.SessionProof == "" {
		return fmt.Errorf("session proof cannot be empty")
	}
	return nil
}

// ConfirmationTimeoutError means the signed transaction could not be observed
// on the network within the polling budget. The exact on-chain bytes are
// required downstream, so reconstructed bytes are never substituted.
type ConfirmationTimeoutError struct {
	TxSignature string
	Attempts    int
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %q was not confirmed after %d attempts", e.TxSignature, e.Attempts)
}

// Signer is the boundary to the custodial wallet service.
//
// Sign applies the wallet's signature and returns the signed envelope without
// broadcasting. SignAndSubmit signs and broadcasts in one step, returning the
// network transaction signature. Implementations that only support one of the
// two return ErrSignOnlyUnsupported from the other.
//
//go:generate mockery --name=Signer --case=underscore --structname=MockSigner --inpackage
type Signer interface {
	Sign(ctx context.Context, envelope *chain.Envelope, creds Credentials) (*chain.Envelope, error)
	SignAndSubmit(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, error)
}
