package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NetworkAssetMismatchError means the gateway's requirement does not match the
// locally configured network or asset. This is a configuration or trust
// failure, never a retryable condition: a compromised or misconfigured gateway
// could otherwise silently redirect payment to a different asset or chain.
type NetworkAssetMismatchError struct {
	Field string
	Want  string
	Got   string
}

func (e *NetworkAssetMismatchError) Error() string {
	return fmt.Sprintf("payment requirement %s mismatch: configured %q, gateway sent %q", e.Field, e.Want, e.Got)
}

// Codec encodes and decodes payment payloads for a fixed network/asset
// configuration.
type Codec struct {
	Network string
	Asset   string
}

// NewCodec creates a Codec bound to the configured network and asset.
func NewCodec(network, asset string) (*Codec, error) {
	if network == "" {
		return nil, fmt.Errorf("network cannot be empty")
	}
	if asset == "" {
		return nil, fmt.Errorf("asset cannot be empty")
	}
	return &Codec{Network: network, Asset: asset}, nil
}

// SelectRequirement validates a gateway requirement against the configured
// network/asset and resolves which requirement option to pay. The first entry
// in accepts that matches local configuration wins; an empty accepts list
// falls back to the requirement's top-level fields. Any mismatch aborts
// before funds move.
func (c *Codec) SelectRequirement(req *PaymentRequirements) (*RequirementOption, error) {
	if req == nil {
		return nil, fmt.Errorf("payment requirements cannot be nil")
	}

	options := req.Accepts
	if len(options) == 0 {
		options = []RequirementOption{{
			Scheme:            req.Scheme,
			Network:           req.Network,
			Asset:             req.Asset,
			PayTo:             req.PayTo,
			MaxAmountRequired: req.MaxAmountRequired,
		}}
	}

	for _, opt := range options {
		if opt.Scheme != SchemeExact {
			continue
		}
		if opt.Network != c.Network || opt.Asset != c.Asset {
			continue
		}
		if opt.PayTo == "" {
			return nil, fmt.Errorf("matching requirement option has no payTo address")
		}
		return &opt, nil
	}

	// Nothing matched. Report the first option's divergence so the operator
	// can see what the gateway actually sent.
	first := options[0]
	if first.Network != c.Network {
		return nil, &NetworkAssetMismatchError{Field: "network", Want: c.Network, Got: first.Network}
	}
	if first.Asset != c.Asset {
		return nil, &NetworkAssetMismatchError{Field: "asset", Want: c.Asset, Got: first.Asset}
	}
	return nil, fmt.Errorf("no acceptable requirement option with scheme %q", SchemeExact)
}

// EncodePayment wraps a signed transaction into a base64-framed payment
// payload answering the given requirement option.
func (c *Codec) EncodePayment(opt *RequirementOption, signedTransactionBase64, payerAddress string) (string, error) {
	if opt == nil {
		return "", fmt.Errorf("requirement option cannot be nil")
	}
	if opt.Network != c.Network {
		return "", &NetworkAssetMismatchError{Field: "network", Want: c.Network, Got: opt.Network}
	}
	if opt.Asset != c.Asset {
		return "", &NetworkAssetMismatchError{Field: "asset", Want: c.Asset, Got: opt.Asset}
	}
	if signedTransactionBase64 == "" {
		return "", fmt.Errorf("signed transaction cannot be empty")
	}
	if payerAddress == "" {
		return "", fmt.Errorf("payer address cannot be empty")
	}

	payload := PaymentPayload{
		X402Version: X402Version,
		Scheme:      opt.Scheme,
		Network:     opt.Network,
		Asset:       opt.Asset,
		Payload: ExactPayload{
			Transaction: signedTransactionBase64,
			PublicKey:   payerAddress,
		},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payment payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(payloadJSON), nil
}

// DecodePayment parses a base64-framed payment payload.
func DecodePayment(paymentBase64 string) (*PaymentPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(paymentBase64)
	if err != nil {
		return nil, fmt.Errorf("payment is not valid base64: %w", err)
	}

	var payload PaymentPayload
	if err = json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payment is not valid JSON: %w", err)
	}

	if payload.X402Version != X402Version {
		return nil, fmt.Errorf("unsupported x402 version %d", payload.X402Version)
	}
	if payload.Payload.Transaction == "" {
		return nil, fmt.Errorf("payment payload has no transaction")
	}
	if payload.Payload.PublicKey == "" {
		return nil, fmt.Errorf("payment payload has no public key")
	}

	return &payload, nil
}
