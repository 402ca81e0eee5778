package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/monitor"
)

const (
	// ConfirmationPollAttempts caps how many times the network is polled for
	// a submitted transaction.
	ConfirmationPollAttempts = 15
	// ConfirmationPollDelay is the fixed delay between polls. Together with
	// the attempt cap this gives a hard ~30s ceiling before
	// ConfirmationTimeoutError surfaces.
	ConfirmationPollDelay = 2 * time.Second
)

// ConfirmingSignerInterface is what the orchestrator depends on: a signer
// that yields the exact on-chain envelope bytes, not a reconstruction.
//
//go:generate mockery --name=ConfirmingSignerInterface --case=underscore --structname=MockConfirmingSigner --inpackage
type ConfirmingSignerInterface interface {
	SignSubmitAndRecover(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, *chain.Envelope, error)
}

// ConfirmingSigner signs and broadcasts through an underlying Signer and then
// recovers the exact signed transaction bytes by polling the network for the
// transaction by signature. The payment protocol verifies payments against
// byte-exact envelopes, so reconstructed bytes would fail gateway-side
// verification.
type ConfirmingSigner struct {
	signer    Signer
	rpcClient chain.RPCClient
	// MonitorService is optional. When set, each confirmation poll is
	// counted with its outcome.
	MonitorService monitor.MonitorServiceInterface
}

var _ ConfirmingSignerInterface = (*ConfirmingSigner)(nil)

// NewConfirmingSigner creates a ConfirmingSigner.
func NewConfirmingSigner(s Signer, rpcClient chain.RPCClient) (*ConfirmingSigner, error) {
	if s == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if rpcClient == nil {
		return nil, fmt.Errorf("rpcClient cannot be nil")
	}
	return &ConfirmingSigner{signer: s, rpcClient: rpcClient}, nil
}

// SignSubmitAndRecover signs and broadcasts the envelope, then polls until
// the transaction confirms and returns its signature together with the exact
// envelope that landed on-chain.
//
// Once the transaction has been broadcast, confirmation polling runs on a
// detached context: a caller cancelling mid-poll cannot cancel a payment that
// may already be on-chain, it only stops caring about the answer.
func (cs *ConfirmingSigner) SignSubmitAndRecover(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, *chain.Envelope, error) {
	signature, err := cs.signer.SignAndSubmit(ctx, envelope, creds)
	if err != nil {
		return "", nil, fmt.Errorf("signing and submitting transaction: %w", err)
	}

	log.Ctx(ctx).Infof("Transaction %q submitted, polling for confirmation...", signature)

	confirmedEnvelope, err := cs.awaitConfirmation(context.WithoutCancel(ctx), signature)
	if err != nil {
		return signature, nil, err
	}

	return signature, confirmedEnvelope, nil
}

func (cs *ConfirmingSigner) monitorPoll(ctx context.Context, outcome string) {
	if cs.MonitorService == nil {
		return
	}
	err := cs.MonitorService.MonitorCounters(monitor.ConfirmationPollsTotalTag, map[string]string{"outcome": outcome})
	if err != nil {
		log.Ctx(ctx).Errorf("Error trying to monitor confirmation poll: %s", err)
	}
}

func (cs *ConfirmingSigner) awaitConfirmation(ctx context.Context, signature string) (*chain.Envelope, error) {
	var confirmed *chain.ConfirmedTransaction
	err := retry.Do(
		func() error {
			tx, attemptErr := cs.rpcClient.GetTransaction(ctx, signature)
			if attemptErr != nil {
				cs.monitorPoll(ctx, "error")
				return attemptErr
			}
			if !tx.Confirmed {
				cs.monitorPoll(ctx, "pending")
				return fmt.Errorf("transaction %q not confirmed yet", signature)
			}
			cs.monitorPoll(ctx, "confirmed")
			confirmed = tx
			return nil
		},
		retry.Attempts(ConfirmationPollAttempts),
		retry.Delay(ConfirmationPollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &ConfirmationTimeoutError{TxSignature: signature, Attempts: ConfirmationPollAttempts}
	}

	confirmedEnvelope, err := chain.DecodeEnvelope(confirmed.EnvelopeBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding confirmed envelope: %w", err)
	}

	return confirmedEnvelope, nil
}
