package httphandler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/signer"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

func Test_renderFlowError(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name         string
		err          error
		wantStatus   int
		wantBodyJSON string
	}{
		{
			name:       "insufficient balance becomes 402 with the gateway's amounts",
			err:        fmt.Errorf("wrapped: %w", &gateway.InsufficientBalanceError{RequiredBaseUnits: 5_000, AvailableBaseUnits: 1_200}),
			wantStatus: http.StatusPaymentRequired,
			wantBodyJSON: `{
				"error": "Insufficient gas credit balance.",
				"error_code": "402_0",
				"extras": {"required": 5000, "available": 1200}
			}`,
		},
		{
			name:       "gateway unavailable becomes 503",
			err:        fmt.Errorf("wrapped: %w", gateway.ErrGatewayUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantBodyJSON: `{
				"error": "The service is temporarily unavailable.",
				"error_code": "500_1"
			}`,
		},
		{
			name:       "network mismatch becomes 400 naming the field",
			err:        fmt.Errorf("wrapped: %w", &x402.NetworkAssetMismatchError{Field: "network", Want: "testnet", Got: "mainnet"}),
			wantStatus: http.StatusBadRequest,
			wantBodyJSON: `{
				"error": "The gateway requirements do not match this network or asset.",
				"extras": {"field": "network"}
			}`,
		},
		{
			name:       "stale blockhash after the automatic retry becomes 400",
			err:        fmt.Errorf("submitting transaction for sponsorship: %w", &gateway.StaleBlockhashError{Message: "blockhash expired"}),
			wantStatus: http.StatusBadRequest,
			wantBodyJSON: `{
				"error": "The transaction blockhash went stale before the gateway accepted it. Please try again.",
				"error_code": "400_1"
			}`,
		},
		{
			name:       "construction error becomes 400 with the reason",
			err:        &chain.ConstructionError{Reason: "blockhash cannot be empty"},
			wantStatus: http.StatusBadRequest,
			wantBodyJSON: `{
				"error": "The request was invalid in some way.",
				"error_code": "400_2",
				"extras": {"reason": "blockhash cannot be empty"}
			}`,
		},
		{
			name:       "confirmation timeout becomes 500 with the tx signature",
			err:        fmt.Errorf("wrapped: %w", &signer.ConfirmationTimeoutError{TxSignature: "sig-1", Attempts: 15}),
			wantStatus: http.StatusInternalServerError,
			wantBodyJSON: `{
				"error": "Transaction confirmation timed out.",
				"error_code": "500_2",
				"extras": {"tx_signature": "sig-1"}
			}`,
		},
		{
			name:       "gateway API errors keep their status code",
			err:        fmt.Errorf("wrapped: %w", &gateway.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "payload rejected"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantBodyJSON: `{
				"error": "payload rejected"
			}`,
		},
		{
			name:       "anything else becomes 500",
			err:        fmt.Errorf("something unexpected"),
			wantStatus: http.StatusInternalServerError,
			wantBodyJSON: `{
				"error": "An internal error occurred while processing this request.",
				"error_code": "500_0"
			}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			renderFlowError(ctx, rr, tc.err)

			assert.Equal(t, tc.wantStatus, rr.Code)
			require.JSONEq(t, tc.wantBodyJSON, rr.Body.String())
		})
	}
}
