package sponsor

import (
	"context"
	"testing"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/signer"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

func testRequirements(asset, payTo string) *x402.PaymentRequirements {
	return &x402.PaymentRequirements{
		X402Version: x402.X402Version,
		Accepts: []x402.RequirementOption{
			{
				Scheme:            x402.SchemeExact,
				Network:           testNetwork,
				Asset:             asset,
				PayTo:             payTo,
				MaxAmountRequired: "10000000",
			},
		},
	}
}

func signedTestEnvelope(t *testing.T, unsigned *chain.Envelope) *chain.Envelope {
	t.Helper()

	kp := keypair.MustRandom()
	signed := &chain.Envelope{
		FeePayer:     unsigned.FeePayer,
		Blockhash:    unsigned.Blockhash,
		Instructions: unsigned.Instructions,
	}
	payload, err := signed.SigningPayload()
	require.NoError(t, err)
	sig, err := kp.Sign(payload)
	require.NoError(t, err)
	signed.AttachSignature(kp.Address(), sig)
	return signed
}

func Test_TopupRequest_Validate(t *testing.T) {
	testCases := []struct {
		name            string
		req             TopupRequest
		wantErrContains string
	}{
		{
			name:            "returns an error if the wallet address is empty",
			req:             TopupRequest{AmountBaseUnits: 5_000, SessionProof: "proof"},
			wantErrContains: "wallet address is required",
		},
		{
			name:            "returns an error if the amount is zero",
			req:             TopupRequest{WalletAddress: "GWALLET", SessionProof: "proof"},
			wantErrContains: "amount must be greater than zero",
		},
		{
			name:            "returns an error if the amount is negative",
			req:             TopupRequest{WalletAddress: "GWALLET", AmountBaseUnits: -1, SessionProof: "proof"},
			wantErrContains: "amount must be greater than zero",
		},
		{
			name:            "returns an error if the session proof is empty",
			req:             TopupRequest{WalletAddress: "GWALLET", AmountBaseUnits: 5_000},
			wantErrContains: "session proof is required",
		},
		{
			name: "🎉 valid request passes",
			req:  TopupRequest{WalletAddress: "GWALLET", AmountBaseUnits: 5_000, SessionProof: "proof"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErrContains != "" {
				assert.ErrorContains(t, err, tc.wantErrContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_Orchestrator_TopUp_success(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}
	creds := signer.Credentials{WalletAddress: wallet, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Once()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-1"}, nil).
		Once()

	// The build is a pure function of the request, so the envelope the signer
	// will receive is known in advance.
	builtEnvelope, err := chain.BuildTransfer(wallet, payTo, orchestrator.asset, 5_000, "hash-1")
	require.NoError(t, err)
	confirmedEnvelope := signedTestEnvelope(t, builtEnvelope)
	confirmedBase64, err := confirmedEnvelope.Base64()
	require.NoError(t, err)

	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, builtEnvelope, creds).
		Return("sig-1", confirmedEnvelope, nil).
		Once()

	var submittedPayment string
	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			submittedPayment = args.String(1)
		}).
		Return(&gateway.TopupResult{WalletAddress: wallet, AmountBaseUnits: 5_000, TxSignature: "sig-1", PaymentID: "pay-1"}, nil).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "success", orchestrator.asset)

	// Preload the cache so invalidation on success is observable.
	m.balanceCache.Set(wallet, &ledger.Balance{WalletAddress: wallet, BalanceBaseUnits: 1})

	outcome, err := orchestrator.TopUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, outcome.State)
	assert.Equal(t, "pay-1", outcome.PaymentID)
	assert.Equal(t, "sig-1", outcome.TxSignature)
	assert.Equal(t, int64(5_000), outcome.AmountBaseUnits)

	payload, err := x402.DecodePayment(submittedPayment)
	require.NoError(t, err)
	assert.Equal(t, confirmedBase64, payload.Payload.Transaction)
	assert.Equal(t, wallet, payload.Payload.PublicKey)

	_, cached := m.balanceCache.Get(wallet)
	assert.False(t, cached, "balance cache should be invalidated after a settled top-up")

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_retriesOnceOnStaleBlockhash(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Twice()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-1"}, nil).
		Once()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-2"}, nil).
		Once()

	var signedBlockhashes []string
	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, mock.AnythingOfType("*chain.Envelope"), mock.Anything).
		Run(func(args mock.Arguments) {
			envelope := args.Get(1).(*chain.Envelope)
			signedBlockhashes = append(signedBlockhashes, envelope.Blockhash)
		}).
		Return("sig-1", signedTestEnvelope(t, &chain.Envelope{Blockhash: "hash-1"}), nil).
		Twice()

	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, &gateway.StaleBlockhashError{Message: "blockhash expired"}).
		Once()
	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Return(&gateway.TopupResult{WalletAddress: wallet, AmountBaseUnits: 5_000, TxSignature: "sig-2", PaymentID: "pay-2"}, nil).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "success", orchestrator.asset)

	outcome, err := orchestrator.TopUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, outcome.State)
	assert.Equal(t, "pay-2", outcome.PaymentID)

	// The retry rebuilt against fresh state, never reusing the stale blockhash.
	assert.Equal(t, []string{"hash-1", "hash-2"}, signedBlockhashes)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_failsAfterSecondStaleBlockhash(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Twice()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-1"}, nil).
		Twice()
	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, mock.AnythingOfType("*chain.Envelope"), mock.Anything).
		Return("sig-1", signedTestEnvelope(t, &chain.Envelope{Blockhash: "hash-1"}), nil).
		Twice()
	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, &gateway.StaleBlockhashError{Message: "blockhash expired"}).
		Twice()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "failure", orchestrator.asset)

	outcome, err := orchestrator.TopUp(ctx, req)
	assert.Nil(t, outcome)

	var staleErr *gateway.StaleBlockhashError
	require.ErrorAs(t, err, &staleErr)

	// Exactly two attempts: the original plus one retry.
	m.gatewayClient.AssertNumberOfCalls(t, "SubmitTopup", 2)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_retriesOnceOnConfirmationTimeout(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Twice()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-1"}, nil).
		Twice()

	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, mock.AnythingOfType("*chain.Envelope"), mock.Anything).
		Return("sig-1", nil, &signer.ConfirmationTimeoutError{TxSignature: "sig-1", Attempts: 15}).
		Once()
	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, mock.AnythingOfType("*chain.Envelope"), mock.Anything).
		Return("sig-2", signedTestEnvelope(t, &chain.Envelope{Blockhash: "hash-1"}), nil).
		Once()

	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Return(&gateway.TopupResult{WalletAddress: wallet, AmountBaseUnits: 5_000, TxSignature: "sig-2", PaymentID: "pay-1"}, nil).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "success", orchestrator.asset)

	outcome, err := orchestrator.TopUp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "sig-2", outcome.TxSignature)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_insufficientBalanceIsTerminal(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Once()
	m.rpcClient.
		On("LatestBlockhash", mock.Anything).
		Return(&chain.RecentBlockhash{Blockhash: "hash-1"}, nil).
		Once()
	m.confirmingSigner.
		On("SignSubmitAndRecover", mock.Anything, mock.AnythingOfType("*chain.Envelope"), mock.Anything).
		Return("sig-1", signedTestEnvelope(t, &chain.Envelope{Blockhash: "hash-1"}), nil).
		Once()
	m.gatewayClient.
		On("SubmitTopup", mock.Anything, mock.AnythingOfType("string")).
		Return(nil, &gateway.InsufficientBalanceError{RequiredBaseUnits: 5_000, AvailableBaseUnits: 1_200}).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "failure", orchestrator.asset)

	// Preload the cache: a failed run must not invalidate it.
	m.balanceCache.Set(wallet, &ledger.Balance{WalletAddress: wallet})

	outcome, err := orchestrator.TopUp(ctx, req)
	assert.Nil(t, outcome)

	// The gateway's amounts surface unchanged, and nothing is retried.
	var balanceErr *gateway.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, int64(5_000), balanceErr.RequiredBaseUnits)
	assert.Equal(t, int64(1_200), balanceErr.AvailableBaseUnits)
	m.gatewayClient.AssertNumberOfCalls(t, "SubmitTopup", 1)

	_, cached := m.balanceCache.Get(wallet)
	assert.True(t, cached)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_abortsBeforeSigningOnRequirementMismatch(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 5_000, SessionProof: "proof"}

	mismatched := testRequirements(orchestrator.asset, keypair.MustRandom().Address())
	mismatched.Accepts[0].Network = "mainnet"
	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(mismatched, nil).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "failure", orchestrator.asset)

	outcome, err := orchestrator.TopUp(ctx, req)
	assert.Nil(t, outcome)

	var mismatchErr *x402.NetworkAssetMismatchError
	require.ErrorAs(t, err, &mismatchErr)

	// Funds never move on a mismatch: no blockhash fetched, nothing signed.
	m.rpcClient.AssertNumberOfCalls(t, "LatestBlockhash", 0)
	m.confirmingSigner.AssertNumberOfCalls(t, "SignSubmitAndRecover", 0)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_rejectsAmountAboveRequirementMaximum(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(t)

	wallet := keypair.MustRandom().Address()
	payTo := keypair.MustRandom().Address()
	req := TopupRequest{WalletAddress: wallet, AmountBaseUnits: 20_000_000, SessionProof: "proof"}

	m.gatewayClient.
		On("GetTopupRequirements", mock.Anything).
		Return(testRequirements(orchestrator.asset, payTo), nil).
		Once()

	expectFlowOutcome(m, monitor.TopupsCounterTag, "failure", orchestrator.asset)

	outcome, err := orchestrator.TopUp(ctx, req)
	assert.Nil(t, outcome)
	assert.ErrorContains(t, err, "exceeds requirement maximum")

	m.confirmingSigner.AssertNumberOfCalls(t, "SignSubmitAndRecover", 0)

	m.assertExpectations(t)
}

func Test_Orchestrator_TopUp_invalidRequest(t *testing.T) {
	orchestrator, m := newTestOrchestrator(t)

	outcome, err := orchestrator.TopUp(context.Background(), TopupRequest{})
	assert.Nil(t, outcome)
	assert.ErrorContains(t, err, "validating top-up request")

	m.gatewayClient.AssertNumberOfCalls(t, "GetTopupRequirements", 0)
}
