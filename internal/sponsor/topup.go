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

// TopupRequest asks to purchase gas credit for a wallet.
type TopupRequest struct {
	WalletAddress   string
	AmountBaseUnits int64
	SessionProof    string
}

func (r TopupRequest) Validate() error {
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	if r.AmountBaseUnits <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if r.SessionProof == "" {
		return fmt.Errorf("session proof is required")
	}
	return nil
}

// TopupOutcome is the terminal result of a top-up run.
type TopupOutcome struct {
	State           State
	PaymentID       string
	TxSignature     string
	AmountBaseUnits int64
}

// TopUp purchases credit: fetch requirements, build and sign a payment
// transaction against a fresh blockhash, recover the exact on-chain bytes,
// and submit the payment payload to the gateway.
//
// A stale-blockhash rejection or a confirmation timeout earns exactly one
// end-to-end retry with freshly fetched requirements and blockhash; every
// other failure is terminal. On success the wallet's cached balance is
// invalidated so the next read reflects the purchase.
func (o *Orchestrator) TopUp(ctx context.Context, req TopupRequest) (outcome *TopupOutcome, err error) {
	if err = req.Validate(); err != nil {
		return nil, fmt.Errorf("validating top-up request: %w", err)
	}

	r, ctx := newRun(ctx, "topup")
	defer o.fail(r)

	result, err := o.runTopupAttempt(ctx, r, req)
	if err != nil && isRetryableFlowError(err) {
		log.Ctx(ctx).Warnf("top-up attempt failed retryably, rebuilding with fresh state: %v", err)
		o.transition(ctx, r, StateRetrying)
		result, err = o.runTopupAttempt(ctx, r, req)
	}
	if err != nil {
		o.transition(ctx, r, StateFailed)
		o.monitorFlowOutcome(ctx, monitor.TopupsCounterTag, "failure")
		return nil, err
	}

	o.transition(ctx, r, StateSettled)
	o.balanceCache.Invalidate(req.WalletAddress)
	o.monitorFlowOutcome(ctx, monitor.TopupsCounterTag, "success")

	log.Ctx(ctx).Infof("🎉 Top-up settled: payment=%s tx=%s amount=%d", result.PaymentID, result.TxSignature, result.AmountBaseUnits)

	return &TopupOutcome{
		State:           r.state,
		PaymentID:       result.PaymentID,
		TxSignature:     result.TxSignature,
		AmountBaseUnits: result.AmountBaseUnits,
	}, nil
}

func (o *Orchestrator) runTopupAttempt(ctx context.Context, r *run, req TopupRequest) (*gateway.TopupResult, error) {
	// STEP 1: fetch a fresh payment challenge. Requirements are ephemeral and
	// may embed recipient-routing data, so they are never reused.
	requirements, err := o.gatewayClient.GetTopupRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching top-up requirements: %w", err)
	}

	// STEP 2: validate the challenge against local configuration. A mismatch
	// aborts before the signer is ever involved.
	opt, err := o.codec.SelectRequirement(requirements)
	if err != nil {
		return nil, fmt.Errorf("selecting payment requirement: %w", err)
	}

	maxAmount, err := opt.MaxAmountBaseUnits()
	if err != nil {
		return nil, fmt.Errorf("reading requirement amount: %w", err)
	}
	if req.AmountBaseUnits > maxAmount {
		return nil, fmt.Errorf("top-up amount %d exceeds requirement maximum %d", req.AmountBaseUnits, maxAmount)
	}

	// STEP 3: build the payment transaction against a fresh blockhash.
	o.transition(ctx, r, StateBuildingTx)
	blockhash, err := o.freshBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	envelope, err := chain.BuildTransfer(req.WalletAddress, opt.PayTo, o.asset, req.AmountBaseUnits, blockhash)
	if err != nil {
		return nil, fmt.Errorf("building payment transaction: %w", err)
	}

	// STEP 4: sign, broadcast, and recover the exact on-chain bytes. The
	// gateway verifies the payment against byte-exact envelopes.
	o.transition(ctx, r, StateSigning)
	creds := signer.Credentials{WalletAddress: req.WalletAddress, SessionProof: req.SessionProof}
	o.transition(ctx, r, StateAwaitingConfirmation)
	txSignature, confirmedEnvelope, err := o.confirmingSigner.SignSubmitAndRecover(ctx, envelope, creds)
	if err != nil {
		return nil, fmt.Errorf("signing payment transaction: %w", err)
	}

	confirmedBase64, err := confirmedEnvelope.Base64()
	if err != nil {
		return nil, fmt.Errorf("encoding confirmed envelope: %w", err)
	}

	payment, err := o.codec.EncodePayment(opt, confirmedBase64, req.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("encoding payment payload: %w", err)
	}

	// STEP 5: submit the payment to the gateway.
	o.transition(ctx, r, StateSubmittingToGateway)
	result, err := o.gatewayClient.SubmitTopup(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("submitting payment tx=%s: %w", txSignature, err)
	}

	return result, nil
}

// isRetryableFlowError reports whether a flow attempt failed in a way that a
// single rebuild with fresh blockchain state can fix.
func isRetryableFlowError(err error) bool {
	var staleErr *gateway.StaleBlockhashError
	var timeoutErr *signer.ConfirmationTimeoutError
	return errors.As(err, &staleErr) || errors.As(err, &timeoutErr)
}
