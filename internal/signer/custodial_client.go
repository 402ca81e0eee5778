package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/serve/httpclient"
)

const signAndSubmitPath = "/v1/transactions/sign-and-submit"

// authMethod is one way of authorizing the custodial service to sign.
// Methods are tried in order; adding a fallback is a data change, not a
// control-flow change.
type authMethod struct {
	name    string
	attempt func(ctx context.Context, envelopeBase64 string, creds Credentials) (string, error)
}

// CustodialClient talks to the custodial wallet service. The service only
// supports sign-and-broadcast; Sign always returns ErrSignOnlyUnsupported.
type CustodialClient struct {
	BasePath   string
	httpClient httpclient.HTTPClientInterface
}

var _ Signer = (*CustodialClient)(nil)

// NewCustodialClient creates a client for the custodial wallet service.
func NewCustodialClient(basePath string) *CustodialClient {
	return &CustodialClient{
		BasePath:   basePath,
		httpClient: httpclient.DefaultClient(),
	}
}

// Sign is unsupported by the custodial service.
func (client *CustodialClient) Sign(_ context.Context, _ *chain.Envelope, _ Credentials) (*chain.Envelope, error) {
	return nil, ErrSignOnlyUnsupported
}

// SignAndSubmit asks the custodial service to sign the envelope with the
// wallet's key and broadcast it, returning the network transaction signature.
// Authorization methods are tried in declared order; only auth failures fall
// through to the next method.
func (client *CustodialClient) SignAndSubmit(ctx context.Context, envelope *chain.Envelope, creds Credentials) (string, error) {
	if envelope == nil {
		return "", fmt.Errorf("envelope cannot be nil")
	}
	if err := creds.Validate(); err != nil {
		return "", fmt.Errorf("validating credentials: %w", err)
	}

	envelopeBase64, err := envelope.Base64()
	if err != nil {
		return "", fmt.Errorf("encoding envelope: %w", err)
	}

	methods := []authMethod{
		{name: "session-key", attempt: client.signWithSessionKey},
		{name: "delegated-session", attempt: client.signWithDelegatedSession},
	}

	var lastErr error
	for _, method := range methods {
		signature, attemptErr := method.attempt(ctx, envelopeBase64, creds)
		if attemptErr == nil {
			return signature, nil
		}
		if !isAuthMethodError(attemptErr) {
			return "", fmt.Errorf("signing with %s: %w", method.name, attemptErr)
		}
		log.Ctx(ctx).Warnf("custodial auth method %q rejected, trying next: %v", method.name, attemptErr)
		lastErr = attemptErr
	}

	return "", fmt.Errorf("all custodial auth methods rejected: %w", lastErr)
}

func (client *CustodialClient) signWithSessionKey(ctx context.Context, envelopeBase64 string, creds Credentials) (string, error) {
	return client.postSignAndSubmit(ctx, map[string]string{
		"authMethod":   "session-key",
		"transaction":  envelopeBase64,
		"wallet":       creds.WalletAddress,
		"sessionProof": creds.SessionProof,
	})
}

func (client *CustodialClient) signWithDelegatedSession(ctx context.Context, envelopeBase64 string, creds Credentials) (string, error) {
	return client.postSignAndSubmit(ctx, map[string]string{
		"authMethod":   "delegated-session",
		"transaction":  envelopeBase64,
		"wallet":       creds.WalletAddress,
		"sessionProof": creds.SessionProof,
	})
}

func (client *CustodialClient) postSignAndSubmit(ctx context.Context, payload map[string]string) (string, error) {
	u, err := url.JoinPath(client.BasePath, signAndSubmitPath)
	if err != nil {
		return "", fmt.Errorf("building path: %w", err)
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("reading error response body: %w", readErr)
		}
		return "", &custodialError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var signResp struct {
		Signature string `json:"signature"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&signResp); err != nil {
		return "", fmt.Errorf("decoding response body: %w", err)
	}
	if signResp.Signature == "" {
		return "", fmt.Errorf("custodial service returned an empty signature")
	}

	return signResp.Signature, nil
}

type custodialError struct {
	StatusCode int
	Body       string
}

func (e *custodialError) Error() string {
	return fmt.Sprintf("custodial service error: status=%d body=%s", e.StatusCode, e.Body)
}

// isAuthMethodError reports whether the failure is an authorization rejection
// that another auth method may resolve. Shared by all methods so the fallback
// order is the only thing that varies.
func isAuthMethodError(err error) bool {
	var cErr *custodialError
	if !errors.As(err, &cErr) {
		return false
	}
	return cErr.StatusCode == http.StatusUnauthorized || cErr.StatusCode == http.StatusForbidden
}
