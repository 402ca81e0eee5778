package httphandler

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/sponsor"
)

func Test_SponsorHandler_PostSponsor(t *testing.T) {
	walletAddress := keypair.MustRandom().Address()

	postSponsor := func(t *testing.T, handler SponsorHandler, body string, authenticated bool) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/sponsor", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if authenticated {
			req = req.WithContext(ctxWithSession(req.Context(), walletAddress))
		}
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.PostSponsor).ServeHTTP(rr, req)
		return rr
	}

	t.Run("returns 401 when the request carries no session claims", func(t *testing.T) {
		handler := SponsorHandler{Orchestrator: &sponsor.MockOrchestrator{}}
		rr := postSponsor(t, handler, `{"transaction": "dHg=", "sessionProof": "proof"}`, false)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("returns 400 on a malformed body", func(t *testing.T) {
		handler := SponsorHandler{Orchestrator: &sponsor.MockOrchestrator{}}
		rr := postSponsor(t, handler, `{invalid`, true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error_code": "400_0"`)
	})

	t.Run("returns 400 when the transaction is missing", func(t *testing.T) {
		handler := SponsorHandler{Orchestrator: &sponsor.MockOrchestrator{}}
		rr := postSponsor(t, handler, `{"sessionProof": "proof"}`, true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error": "Request invalid", "extras": {"transaction": "transaction is required"}}`, string(respBody))
	})

	t.Run("returns 400 when the session proof is missing", func(t *testing.T) {
		handler := SponsorHandler{Orchestrator: &sponsor.MockOrchestrator{}}
		rr := postSponsor(t, handler, `{"transaction": "dHg="}`, true)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error": "Request invalid", "extras": {"sessionProof": "sessionProof is required"}}`, string(respBody))
	})

	t.Run("🎉 successfully sponsors a transaction", func(t *testing.T) {
		orchestratorMock := sponsor.MockOrchestrator{}
		orchestratorMock.
			On("Sponsor", mock.Anything, sponsor.SponsorRequest{
				WalletAddress:  walletAddress,
				EnvelopeBase64: "dHg=",
				SessionProof:   "proof",
			}).
			Return(&sponsor.SponsorOutcome{
				State:           sponsor.StateSettled,
				TxSignature:     "sig-1",
				BilledBaseUnits: 150,
				FeeBaseUnits:    100,
			}, nil).
			Once()
		handler := SponsorHandler{Orchestrator: &orchestratorMock}

		rr := postSponsor(t, handler, `{"transaction": "dHg=", "sessionProof": "proof"}`, true)
		assert.Equal(t, http.StatusCreated, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"state": "SETTLED",
			"txSignature": "sig-1",
			"billed": 150,
			"fee": 100
		}`, string(respBody))

		orchestratorMock.AssertExpectations(t)
	})

	t.Run("returns 402 with the gateway's amounts when credit is insufficient", func(t *testing.T) {
		orchestratorMock := sponsor.MockOrchestrator{}
		orchestratorMock.
			On("Sponsor", mock.Anything, mock.AnythingOfType("sponsor.SponsorRequest")).
			Return(nil, fmt.Errorf("requesting sponsorship: %w", &gateway.InsufficientBalanceError{
				RequiredBaseUnits:  150,
				AvailableBaseUnits: 40,
			})).
			Once()
		handler := SponsorHandler{Orchestrator: &orchestratorMock}

		rr := postSponsor(t, handler, `{"transaction": "dHg=", "sessionProof": "proof"}`, true)
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"error": "Insufficient gas credit balance.",
			"error_code": "402_0",
			"extras": {"required": 150, "available": 40}
		}`, string(respBody))

		orchestratorMock.AssertExpectations(t)
	})

	t.Run("returns 400 when the blockhash is still stale after the automatic retry", func(t *testing.T) {
		orchestratorMock := sponsor.MockOrchestrator{}
		orchestratorMock.
			On("Sponsor", mock.Anything, mock.AnythingOfType("sponsor.SponsorRequest")).
			Return(nil, fmt.Errorf("submitting transaction for sponsorship after retry: %w", &gateway.StaleBlockhashError{Message: "blockhash expired"})).
			Once()
		handler := SponsorHandler{Orchestrator: &orchestratorMock}

		rr := postSponsor(t, handler, `{"transaction": "dHg=", "sessionProof": "proof"}`, true)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"error": "The transaction blockhash went stale before the gateway accepted it. Please try again.",
			"error_code": "400_1"
		}`, string(respBody))

		orchestratorMock.AssertExpectations(t)
	})

	t.Run("returns 400 with the reason when the envelope is rejected", func(t *testing.T) {
		orchestratorMock := sponsor.MockOrchestrator{}
		orchestratorMock.
			On("Sponsor", mock.Anything, mock.AnythingOfType("sponsor.SponsorRequest")).
			Return(nil, &chain.ConstructionError{Reason: "transaction has no instructions"}).
			Once()
		handler := SponsorHandler{Orchestrator: &orchestratorMock}

		rr := postSponsor(t, handler, `{"transaction": "dHg=", "sessionProof": "proof"}`, true)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		respBody, err := io.ReadAll(rr.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"error": "The request was invalid in some way.",
			"error_code": "400_2",
			"extras": {"reason": "transaction has no instructions"}
		}`, string(respBody))

		orchestratorMock.AssertExpectations(t)
	})
}
