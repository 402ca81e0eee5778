package signer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stellar/go-stellar-sdk/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaslift/gaslift-backend/internal/chain"
	httpclientMocks "github.com/gaslift/gaslift-backend/internal/serve/httpclient/mocks"
)

func testCredentials(t *testing.T) Credentials {
	t.Helper()
	return Credentials{
		WalletAddress: keypair.MustRandom().Address(),
		SessionProof:  "session-proof-token",
	}
}

func testUnsignedEnvelope(t *testing.T, walletAddress string) *chain.Envelope {
	t.Helper()
	return &chain.Envelope{
		Blockhash: "abc123",
		Instructions: []chain.TransferInstruction{
			{
				Source:          walletAddress,
				Destination:     keypair.MustRandom().Address(),
				Asset:           keypair.MustRandom().Address(),
				AmountBaseUnits: 5_000,
			},
		},
	}
}

func Test_Credentials_Validate(t *testing.T) {
	t.Run("returns an error if the wallet address is empty", func(t *testing.T) {
		err := Credentials{SessionProof: "proof"}.Validate()
		assert.ErrorContains(t, err, "wallet address cannot be empty")
	})

	t.Run("returns an error if the session proof is empty", func(t *testing.T) {
		err := Credentials{WalletAddress: "GWALLET"}.Validate()
		assert.ErrorContains(t, err, "session proof cannot be empty")
	})

	t.Run("🎉 valid credentials pass", func(t *testing.T) {
		assert.NoError(t, testCredentials(t).Validate())
	})
}

func Test_CustodialClient_Sign(t *testing.T) {
	client := NewCustodialClient("https://custodial.test")
	signed, err := client.Sign(context.Background(), &chain.Envelope{}, testCredentials(t))
	assert.Nil(t, signed)
	assert.ErrorIs(t, err, ErrSignOnlyUnsupported)
}

func Test_CustodialClient_SignAndSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("returns an error if the envelope is nil", func(t *testing.T) {
		client := NewCustodialClient("https://custodial.test")
		_, err := client.SignAndSubmit(ctx, nil, testCredentials(t))
		assert.ErrorContains(t, err, "envelope cannot be nil")
	})

	t.Run("returns an error if the credentials are incomplete", func(t *testing.T) {
		client := NewCustodialClient("https://custodial.test")
		_, err := client.SignAndSubmit(ctx, &chain.Envelope{}, Credentials{})
		assert.ErrorContains(t, err, "validating credentials")
	})

	t.Run("🎉 successfully signs with the session-key method", func(t *testing.T) {
		creds := testCredentials(t)
		envelope := testUnsignedEnvelope(t, creds.WalletAddress)
		envelopeBase64, err := envelope.Base64()
		require.NoError(t, err)

		httpClientMock := httpclientMocks.HTTPClientMock{}
		httpClientMock.
			On("Do", mock.Anything).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)
				assert.Equal(t, "https://custodial.test/v1/transactions/sign-and-submit", req.URL.String())

				var payload map[string]string
				require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
				assert.Equal(t, "session-key", payload["authMethod"])
				assert.Equal(t, envelopeBase64, payload["transaction"])
				assert.Equal(t, creds.WalletAddress, payload["wallet"])
				assert.Equal(t, creds.SessionProof, payload["sessionProof"])
			}).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"signature": "sig-1"}`)),
			}, nil).
			Once()
		client := &CustodialClient{BasePath: "https://custodial.test", httpClient: &httpClientMock}

		signature, err := client.SignAndSubmit(ctx, envelope, creds)
		require.NoError(t, err)
		assert.Equal(t, "sig-1", signature)

		httpClientMock.AssertExpectations(t)
		httpClientMock.AssertNumberOfCalls(t, "Do", 1)
	})

	t.Run("🎉 falls back to delegated-session when session-key is rejected", func(t *testing.T) {
		creds := testCredentials(t)
		envelope := testUnsignedEnvelope(t, creds.WalletAddress)

		var authMethods []string
		httpClientMock := httpclientMocks.HTTPClientMock{}
		httpClientMock.
			On("Do", mock.Anything).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)
				var payload map[string]string
				require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
				authMethods = append(authMethods, payload["authMethod"])
			}).
			Return(&http.Response{
				StatusCode: http.StatusUnauthorized,
				Body:       io.NopCloser(strings.NewReader(`{"message": "session key not authorized"}`)),
			}, nil).
			Once()
		httpClientMock.
			On("Do", mock.Anything).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)
				var payload map[string]string
				require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
				authMethods = append(authMethods, payload["authMethod"])
			}).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"signature": "sig-2"}`)),
			}, nil).
			Once()
		client := &CustodialClient{BasePath: "https://custodial.test", httpClient: &httpClientMock}

		signature, err := client.SignAndSubmit(ctx, envelope, creds)
		require.NoError(t, err)
		assert.Equal(t, "sig-2", signature)
		assert.Equal(t, []string{"session-key", "delegated-session"}, authMethods)

		httpClientMock.AssertExpectations(t)
	})

	t.Run("does not fall back on non-auth failures", func(t *testing.T) {
		creds := testCredentials(t)
		envelope := testUnsignedEnvelope(t, creds.WalletAddress)

		httpClientMock := httpclientMocks.HTTPClientMock{}
		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader(`{"message": "boom"}`)),
			}, nil).
			Once()
		client := &CustodialClient{BasePath: "https://custodial.test", httpClient: &httpClientMock}

		_, err := client.SignAndSubmit(ctx, envelope, creds)
		assert.ErrorContains(t, err, "signing with session-key")

		httpClientMock.AssertExpectations(t)
		httpClientMock.AssertNumberOfCalls(t, "Do", 1)
	})

	t.Run("returns an error when every auth method is rejected", func(t *testing.T) {
		creds := testCredentials(t)
		envelope := testUnsignedEnvelope(t, creds.WalletAddress)

		httpClientMock := httpclientMocks.HTTPClientMock{}
		for i := 0; i < 2; i++ {
			httpClientMock.
				On("Do", mock.Anything).
				Return(&http.Response{
					StatusCode: http.StatusForbidden,
					Body:       io.NopCloser(strings.NewReader(`{"message": "not allowed"}`)),
				}, nil).
				Once()
		}
		client := &CustodialClient{BasePath: "https://custodial.test", httpClient: &httpClientMock}

		_, err := client.SignAndSubmit(ctx, envelope, creds)
		assert.ErrorContains(t, err, "all custodial auth methods rejected")

		httpClientMock.AssertExpectations(t)
		httpClientMock.AssertNumberOfCalls(t, "Do", 2)
	})

	t.Run("returns an error when the service responds with an empty signature", func(t *testing.T) {
		creds := testCredentials(t)
		envelope := testUnsignedEnvelope(t, creds.WalletAddress)

		httpClientMock := httpclientMocks.HTTPClientMock{}
		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{}`)),
			}, nil).
			Once()
		client := &CustodialClient{BasePath: "https://custodial.test", httpClient: &httpClientMock}

		_, err := client.SignAndSubmit(ctx, envelope, creds)
		assert.ErrorContains(t, err, "empty signature")

		httpClientMock.AssertExpectations(t)
	})
}
