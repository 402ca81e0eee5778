// Package gateway implements the HTTP client to the external gas credit
// gateway: balance lookups, top-up requirements, top-up submission, and
// per-transaction sponsorship requests. Transport-level failures are retried
// transparently here; protocol-level failures are classified into the typed
// errors the orchestrator branches on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/monitor"
	"github.com/gaslift/gaslift-backend/internal/serve/httpclient"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

const (
	balancePath           = "/balance"
	topupRequirementsPath = "/topup/requirements"
	topupPath             = "/topup"
	sponsorPath           = "/sponsor"
)

// transportRetryAttempts bounds retries of network failures and 503s. 4xx
// responses are never retried at this layer.
const transportRetryAttempts = 3

// SponsorResponse is the gateway's answer to a sponsorship request: the
// countersigned transaction plus what was billed against the wallet's credit.
type SponsorResponse struct {
	TransactionBase64 string `json:"transaction"`
	BilledBaseUnits   int64  `json:"billedBaseUnits"`
	FeeBaseUnits      int64  `json:"fee,omitempty"`
}

// ClientInterface defines the interface for interacting with the gateway API.
//
//go:generate mockery --name=ClientInterface --case=underscore --structname=MockClient --inpackage
type ClientInterface interface {
	GetBalance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error)
	GetTopupRequirements(ctx context.Context) (*x402.PaymentRequirements, error)
	SubmitTopup(ctx context.Context, paymentBase64 string) (*TopupResult, error)
	SponsorTransaction(ctx context.Context, transactionBase64, walletAddress, sessionProof string) (*SponsorResponse, error)
}

// TopupResult is the gateway's acknowledgement of an accepted payment.
type TopupResult struct {
	WalletAddress   string `json:"wallet"`
	AmountBaseUnits int64  `json:"amountBaseUnits"`
	TxSignature     string `json:"txSignature"`
	PaymentID       string `json:"paymentId"`
}

// Client provides methods to interact with the gateway API.
type Client struct {
	BasePath string
	APIKey   string
	// MonitorService is optional. When set, request durations and outcomes
	// are recorded per endpoint.
	MonitorService monitor.MonitorServiceInterface
	httpClient     httpclient.HTTPClientInterface
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a new gateway Client.
func NewClient(basePath, apiKey string) *Client {
	return &Client{
		BasePath:   basePath,
		APIKey:     apiKey,
		httpClient: httpclient.DefaultClient(),
	}
}

// GetBalance fetches a wallet's credit balance and its top-up/usage history.
func (client *Client) GetBalance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address cannot be empty")
	}

	reqBody, err := json.Marshal(map[string]string{
		"wallet":       walletAddress,
		"sessionProof": sessionProof,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling balance request: %w", err)
	}

	var balance ledger.Balance
	err = client.doJSON(ctx, http.MethodPost, balancePath, reqBody, &balance)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}

	return &balance, nil
}

// GetTopupRequirements fetches the gateway's payment challenge for a top-up.
// Requirements are ephemeral and must be re-fetched per attempt, since they
// may embed fresh recipient-routing data.
func (client *Client) GetTopupRequirements(ctx context.Context) (*x402.PaymentRequirements, error) {
	var requirements x402.PaymentRequirements
	err := client.doJSON(ctx, http.MethodGet, topupRequirementsPath, nil, &requirements)
	if err != nil {
		return nil, fmt.Errorf("fetching top-up requirements: %w", err)
	}

	return &requirements, nil
}

// SubmitTopup submits a base64-framed payment payload. Resending the same
// signed transaction is idempotent on the gateway side; a transaction rebuilt
// with a fresh blockhash is a new attempt, not a retry.
func (client *Client) SubmitTopup(ctx context.Context, paymentBase64 string) (*TopupResult, error) {
	if paymentBase64 == "" {
		return nil, fmt.Errorf("payment cannot be empty")
	}

	reqBody, err := json.Marshal(map[string]string{"payment": paymentBase64})
	if err != nil {
		return nil, fmt.Errorf("marshaling top-up request: %w", err)
	}

	var result TopupResult
	err = client.doJSON(ctx, http.MethodPost, topupPath, reqBody, &result)
	if err != nil {
		return nil, fmt.Errorf("submitting top-up: %w", err)
	}

	return &result, nil
}

// SponsorTransaction asks the gateway to pay the network fee for the given
// transaction. The envelope must leave the fee-payer slot open so the gateway
// can countersign as fee payer.
func (client *Client) SponsorTransaction(ctx context.Context, transactionBase64, walletAddress, sessionProof string) (*SponsorResponse, error) {
	if transactionBase64 == "" {
		return nil, fmt.Errorf("transaction cannot be empty")
	}
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address cannot be empty")
	}

	reqBody, err := json.Marshal(map[string]string{
		"transaction":  transactionBase64,
		"wallet":       walletAddress,
		"sessionProof": sessionProof,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling sponsorship request: %w", err)
	}

	var sponsorResp SponsorResponse
	err = client.doJSON(ctx, http.MethodPost, sponsorPath, reqBody, &sponsorResp)
	if err != nil {
		return nil, fmt.Errorf("requesting sponsorship: %w", err)
	}

	return &sponsorResp, nil
}

// doJSON performs an authenticated request with transport-level retries and
// decodes a 200 response into out. Protocol errors come back classified.
func (client *Client) doJSON(ctx context.Context, method, path string, reqBody []byte, out any) error {
	u, err := url.JoinPath(client.BasePath, path)
	if err != nil {
		return fmt.Errorf("building path: %w", err)
	}

	started := time.Now()
	var respBody []byte
	err = retry.Do(
		func() error {
			var attemptErr error
			respBody, attemptErr = client.attempt(ctx, method, u, reqBody)
			if attemptErr == nil {
				return nil
			}

			// Network errors and 503s are worth another try; everything else
			// is a protocol answer and must reach the caller as-is.
			if errors.Is(attemptErr, ErrGatewayUnavailable) {
				return attemptErr
			}
			var apiErr *APIError
			var staleErr *StaleBlockhashError
			var balanceErr *InsufficientBalanceError
			if errors.As(attemptErr, &apiErr) || errors.As(attemptErr, &staleErr) || errors.As(attemptErr, &balanceErr) {
				return retry.Unrecoverable(attemptErr)
			}
			return attemptErr
		},
		retry.Attempts(transportRetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	client.monitorRequest(ctx, method, path, time.Since(started), err)
	if err != nil {
		return err
	}

	if out != nil {
		if err = json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}

	return nil
}

// monitorRequest records the request duration and outcome for one gateway
// call, spanning all transport retries.
func (client *Client) monitorRequest(ctx context.Context, method, path string, duration time.Duration, reqErr error) {
	if client.MonitorService == nil {
		return
	}

	labels := monitor.GatewayLabels{
		Method:   method,
		Endpoint: path,
		Status:   "success",
	}
	if reqErr != nil {
		labels.Status = "error"
		var (
			apiErr       *APIError
			staleErr     *StaleBlockhashError
			insufficient *InsufficientBalanceError
		)
		switch {
		case errors.As(reqErr, &apiErr):
			labels.StatusCode = strconv.Itoa(apiErr.StatusCode)
		case errors.As(reqErr, &staleErr):
			labels.StatusCode = strconv.Itoa(http.StatusBadRequest)
		case errors.As(reqErr, &insufficient):
			labels.StatusCode = strconv.Itoa(http.StatusPaymentRequired)
		case errors.Is(reqErr, ErrGatewayUnavailable):
			labels.StatusCode = strconv.Itoa(http.StatusServiceUnavailable)
		}
	}

	if err := client.MonitorService.MonitorDuration(duration, monitor.GatewayAPIRequestDurationTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("Error trying to monitor gateway request duration: %s", err)
	}
	if err := client.MonitorService.MonitorCounters(monitor.GatewayAPIRequestsTotalTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("Error trying to monitor gateway request counter: %s", err)
	}
}

func (client *Client) attempt(ctx context.Context, method, u string, reqBody []byte) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", client.APIKey))
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr, parseErr := parseAPIError(resp)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing API error: %w", parseErr)
		}
		return nil, classifyAPIError(apiErr)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return respBody, nil
}
