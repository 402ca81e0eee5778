package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrGatewayUnavailable means the gateway answered 503. Transport-level
// retries with backoff are exhausted before this surfaces.
var ErrGatewayUnavailable = errors.New("gateway temporarily unavailable")

// APIError is the error response body the gateway returns on 4xx/5xx.
type APIError struct {
	// Code is the gateway's machine-readable error code.
	Code    string `json:"code"`
	Message string `json:"message"`
	// Required and Available are populated on 402 responses.
	Required  int64 `json:"required,omitempty"`
	Available int64 `json:"available,omitempty"`
	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: Code=%s, Message=%s, StatusCode=%d", e.Code, e.Message, e.StatusCode)
}

// StaleBlockhashError is classified from a 400 whose body points at an
// expired blockhash. The caller rebuilds with a fresh blockhash and retries
// exactly once.
type StaleBlockhashError struct {
	Message string
}

func (e *StaleBlockhashError) Error() string {
	return fmt.Sprintf("transaction blockhash is stale: %s", e.Message)
}

// InsufficientBalanceError is classified from a 402. The amounts come from
// the gateway unchanged and are surfaced to the user; the request is never
// retried silently.
type InsufficientBalanceError struct {
	RequiredBaseUnits  int64
	AvailableBaseUnits int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient gas credit: required %d, available %d", e.RequiredBaseUnits, e.AvailableBaseUnits)
}

const staleBlockhashCode = "stale_blockhash"

// classifyAPIError maps a gateway error response onto the error taxonomy the
// orchestrator branches on:
//
//   - 400 with a blockhash-related body -> StaleBlockhashError (retry once
//     with a fresh blockhash)
//   - 402 -> InsufficientBalanceError (surface, never auto-retry)
//   - 503 -> ErrGatewayUnavailable (retried with backoff at the transport
//     layer before it gets here)
//   - anything else -> the APIError itself, treated as fatal
func classifyAPIError(apiErr *APIError) error {
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		if apiErr.Code == staleBlockhashCode || strings.Contains(strings.ToLower(apiErr.Message), "blockhash") {
			return &StaleBlockhashError{Message: apiErr.Message}
		}
		return apiErr
	case http.StatusPaymentRequired:
		return &InsufficientBalanceError{
			RequiredBaseUnits:  apiErr.Required,
			AvailableBaseUnits: apiErr.Available,
		}
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrGatewayUnavailable, apiErr.Message)
	default:
		return apiErr
	}
}

// parseAPIError parses the error response body from the gateway.
func parseAPIError(resp *http.Response) (*APIError, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading error response body: %w", err)
	}

	apiErr := APIError{}
	if len(body) > 0 {
		if err = json.Unmarshal(body, &apiErr); err != nil {
			// A non-JSON error body still carries the status code.
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	apiErr.StatusCode = resp.StatusCode

	return &apiErr, nil
}
