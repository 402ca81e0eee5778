package sponsor

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/signer"
)

// SponsorRequest asks the gateway to pay the network fee for the wallet's own
// transaction, debiting the wallet's gas credit.
type SponsorRequest struct {
	WalletAddress  string
	EnvelopeBase64 string
	SessionProof   string
}

func (r SponsorRequest) Validate() error {
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	if r.EnvelopeBase64 == "" {
		return fmt.Errorf("transaction is required")
	}
	if r.SessionProof == "" {
		return fmt.Errorf("session proof is required")
	}
	return nil
}

// SponsorOutcome is the terminal result of a sponsorship run.
type SponsorOutcome struct {
	State           State
	TxSignature     string
	BilledBaseUnits int64
	FeeBaseUnits    int64
}

// Sponsor runs the sponsorship flow: re-stamp the user's transaction with a
// fresh blockhash and an open fee-payer slot, submit it to the gateway for
// countersigning and billing, then route the countersigned transaction
// through the signer adapter for the user's signature and broadcast, and wait
// for confirmation.
//
// A 402 is terminal: the required/available amounts are surfaced unchanged
// and nothing is retried. A stale-blockhash 400 earns exactly one rebuild
// with a fresh blockhash. On success the wallet's cached balance is
// invalidated so the next read reflects the debit.
func (o *Orchestrator) Sponsor(ctx context.Context, req SponsorRequest) (outcome *SponsorOutcome, err error) {
	if err = req.Validate(); err != nil {
		return nil, fmt.Errorf("validating sponsorship request: %w", err)
	}

	envelope, err := chain.DecodeEnvelope(req.EnvelopeBase64)
	if err != nil {
		return nil, &chain.ConstructionError{Reason: fmt.Sprintf("decoding transaction: %v", err)}
	}
	if err = validateSponsoredEnvelope(envelope, req.WalletAddress); err != nil {
		return nil, &chain.ConstructionError{Reason: fmt.Sprintf("validating transaction: %v", err)}
	}

	r, ctx := newRun(ctx, "sponsorship")
	defer o.fail(r)

	result, err := o.runSponsorAttempt(ctx, r, envelope, req)
	if err != nil {
		var staleErr *gateway.StaleBlockhashError
		if errors.As(err, &staleErr) {
			log.Ctx(ctx).Warnf("sponsorship rejected for stale blockhash, rebuilding once: %v", err)
			o.transition(ctx, r, StateRetrying)
			result, err = o.runSponsorAttempt(ctx, r, envelope, req)
		}
	}
	if err != nil {
		o.transition(ctx, r, StateFailed)
		o.monitorFlowOutcome(ctx, monitor.SponsorshipsCounterTag, "failure")
		return nil, err
	}

	o.transition(ctx, r, StateSettled)
	o.balanceCache.Invalidate(req.WalletAddress)
	o.monitorFlowOutcome(ctx, monitor.SponsorshipsCounterTag, "success")

	log.Ctx(ctx).Infof("🎉 Sponsorship settled: tx=%s billed=%d", result.TxSignature, result.BilledBaseUnits)

	result.State = r.state
	return result, nil
}

func (o *Orchestrator) runSponsorAttempt(ctx context.Context, r *run, envelope *chain.Envelope, req SponsorRequest) (*SponsorOutcome, error) {
	// STEP 1: rebuild the envelope with a fresh blockhash and the fee-payer
	// slot open. Re-stamping invalidates any carried signatures, and the
	// gateway must see an unsigned fee-payer slot to countersign.
	o.transition(ctx, r, StateBuildingTx)
	blockhash, err := o.freshBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	submission := &chain.Envelope{
		Blockhash:    blockhash,
		Instructions: envelope.Instructions,
	}
	submissionBase64, err := submission.Base64()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction for submission: %w", err)
	}

	// STEP 2: ask the gateway to countersign as fee payer and bill the
	// wallet's credit.
	o.transition(ctx, r, StateSubmittingToGateway)
	sponsorResp, err := o.gatewayClient.SponsorTransaction(ctx, submissionBase64, req.WalletAddress, req.SessionProof)
	if err != nil {
		return nil, fmt.Errorf("requesting sponsorship: %w", err)
	}

	cosigned, err := chain.DecodeEnvelope(sponsorResp.TransactionBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding countersigned transaction: %w", err)
	}
	if cosigned.FeePayer == "" {
		return nil, fmt.Errorf("gateway returned a transaction without a fee payer")
	}
	if err = cosigned.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("verifying countersigned transaction: %w", err)
	}

	// STEP 3: apply the user's signature, broadcast, and wait for the
	// transaction to land. The gateway has already billed; a failure from
	// here on is refunded gateway-side within its bounded window.
	o.transition(ctx, r, StateSigning)
	creds := signer.Credentials{WalletAddress: req.WalletAddress, SessionProof: req.SessionProof}
	o.transition(ctx, r, StateAwaitingConfirmation)
	txSignature, _, err := o.confirmingSigner.SignSubmitAndRecover(ctx, cosigned, creds)
	if err != nil {
		return nil, fmt.Errorf("broadcasting sponsored transaction: %w", err)
	}

	return &SponsorOutcome{
		TxSignature:     txSignature,
		BilledBaseUnits: sponsorResp.BilledBaseUnits,
		FeeBaseUnits:    sponsorResp.FeeBaseUnits,
	}, nil
}

// validateSponsoredEnvelope checks the wallet only spends from itself: every
// instruction source must be the requesting wallet, and the wallet cannot be
// positioned as its own fee payer (that is the gateway's slot).
func validateSponsoredEnvelope(envelope *chain.Envelope, walletAddress string) error {
	if len(envelope.Instructions) == 0 {
		return fmt.Errorf("transaction has no instructions")
	}
	for i, instruction := range envelope.Instructions {
		if instruction.Source != walletAddress {
			return fmt.Errorf("instruction %d source %q does not match requesting wallet", i, instruction.Source)
		}
		if instruction.AmountBaseUnits <= 0 {
			return fmt.Errorf("instruction %d amount must be greater than zero", i)
		}
	}
	return nil
}
