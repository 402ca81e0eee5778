// Package x402 implements the wire format of the challenge/response payment
// protocol used for gas credit top-ups: the gateway issues payment
// requirements (what asset, what network, what recipient, what amount) and
// the client answers with a base64-framed payment payload carrying the exact
// signed transaction.
package x402

import (
	"fmt"
	"strconv"
)

// X402Version is the protocol version this client speaks.
const X402Version = 1

// SchemeExact is the only payment scheme the gateway issues: pay exactly the
// required amount to the required recipient.
const SchemeExact = "exact"

// RequirementOption is one acceptable way to pay, listed under a
// requirement's accepts field.
type RequirementOption struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Asset             string `json:"asset"`
	PayTo             string `json:"payTo"`
	MaxAmountRequired string `json:"maxAmountRequired"`
}

// PaymentRequirements is the gateway-issued challenge describing how to pay
// for a resource. It is ephemeral and re-fetched per top-up attempt, since it
// may embed fresh recipient-routing data.
type PaymentRequirements struct {
	X402Version       int                 `json:"x402Version"`
	Resource          string              `json:"resource"`
	Scheme            string              `json:"scheme"`
	Network           string              `json:"network"`
	Asset             string              `json:"asset"`
	PayTo             string              `json:"payTo"`
	MaxAmountRequired string              `json:"maxAmountRequired"`
	Description       string              `json:"description,omitempty"`
	Accepts           []RequirementOption `json:"accepts,omitempty"`
}

// MaxAmountBaseUnits parses the requirement's amount, which travels as a
// decimal string of atomic units.
func (r RequirementOption) MaxAmountBaseUnits() (int64, error) {
	amount, err := strconv.ParseInt(r.MaxAmountRequired, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing max amount %q: %w", r.MaxAmountRequired, err)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("max amount must be positive, got %d", amount)
	}
	return amount, nil
}

// ExactPayload is the scheme-specific payload for the exact scheme: the
// signed transaction bytes plus the paying wallet's address.
type ExactPayload struct {
	Transaction string `json:"transaction"`
	PublicKey   string `json:"publicKey"`
}

// PaymentPayload is the client-constructed response to a requirement.
type PaymentPayload struct {
	X402Version int          `json:"x402Version"`
	Scheme      string       `json:"scheme"`
	Network     string       `json:"network"`
	Asset       string       `json:"asset"`
	Payload     ExactPayload `json:"payload"`
}
