package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gaslift/gaslift-backend/internal/serve/httpclient"
)

const (
	latestBlockhashPath = "/v1/blockhash/latest"
	transactionsPath    = "/v1/transactions"
)

// RecentBlockhash is a freshly issued blockhash together with the last ledger
// number it is valid for. Blockhashes expire after a bounded window, so a
// caller must fetch one immediately before signing and never reuse it across
// retries.
type RecentBlockhash struct {
	Blockhash       string `json:"blockhash"`
	LastValidLedger uint32 `json:"lastValidLedger"`
}

// ConfirmedTransaction is the network's record of a landed transaction. The
// envelope is the exact bytes that were broadcast, which is what the payment
// protocol needs for verification.
type ConfirmedTransaction struct {
	Hash           string `json:"hash"`
	EnvelopeBase64 string `json:"envelope"`
	Ledger         uint32 `json:"ledger"`
	Confirmed      bool   `json:"confirmed"`
}

// RPCError is the error response returned by the ledger network RPC.
type RPCError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPCError: Code=%s, Message=%s, StatusCode=%d", e.Code, e.Message, e.StatusCode)
}

// IsNotFound reports whether the RPC error means the transaction is not (yet)
// known to the network.
func (e *RPCError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RPCClient defines the view of the ledger network this service needs:
// blockhash issuance and transaction lookup. Broadcasting is the custodial
// signer's job, never done from this process.
//
//go:generate mockery --name=RPCClient --case=underscore --structname=MockRPCClient --inpackage
type RPCClient interface {
	LatestBlockhash(ctx context.Context) (*RecentBlockhash, error)
	GetTransaction(ctx context.Context, hash string) (*ConfirmedTransaction, error)
}

// Client provides methods to interact with the ledger network RPC over HTTP.
type Client struct {
	BasePath   string
	httpClient httpclient.HTTPClientInterface
}

var _ RPCClient = (*Client)(nil)

// NewClient creates a new ledger network RPC client.
func NewClient(basePath string) *Client {
	return &Client{
		BasePath:   basePath,
		httpClient: httpclient.DefaultClient(),
	}
}

// LatestBlockhash fetches a fresh blockhash from the network.
func (client *Client) LatestBlockhash(ctx context.Context) (*RecentBlockhash, error) {
	u, err := url.JoinPath(client.BasePath, latestBlockhashPath)
	if err != nil {
		return nil, fmt.Errorf("building path: %w", err)
	}

	resp, err := client.request(ctx, u, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rpcErr, parseErr := parseRPCError(resp)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing RPC error: %w", parseErr)
		}
		return nil, fmt.Errorf("RPC error: %w", rpcErr)
	}

	var blockhash RecentBlockhash
	if err = json.NewDecoder(resp.Body).Decode(&blockhash); err != nil {
		return nil, fmt.Errorf("decoding blockhash response: %w", err)
	}

	return &blockhash, nil
}

// GetTransaction looks a transaction up by its hash.
func (client *Client) GetTransaction(ctx context.Context, hash string) (*ConfirmedTransaction, error) {
	u, err := url.JoinPath(client.BasePath, transactionsPath, hash)
	if err != nil {
		return nil, fmt.Errorf("building path: %w", err)
	}

	resp, err := client.request(ctx, u, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rpcErr, parseErr := parseRPCError(resp)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing RPC error: %w", parseErr)
		}
		return nil, fmt.Errorf("RPC error: %w", rpcErr)
	}

	var tx ConfirmedTransaction
	if err = json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("decoding transaction response: %w", err)
	}

	return &tx, nil
}

func (client *Client) request(ctx context.Context, u string, method string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return client.httpClient.Do(req)
}

func parseRPCError(resp *http.Response) (*RPCError, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading error response body: %w", err)
	}

	var rpcErr RPCError
	if err = json.Unmarshal(body, &rpcErr); err != nil {
		return nil, fmt.Errorf("unmarshalling error response body: %w", err)
	}
	rpcErr.StatusCode = resp.StatusCode

	return &rpcErr, nil
}
