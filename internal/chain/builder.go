package chain

import (
	"fmt"

	"github.com/stellar/go-stellar-sdk/strkey"
)

// ConstructionError indicates bad input to the transaction builder. It is
// fatal and never retried.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing transaction: %s", e.Reason)
}

func newConstructionError(format string, args ...any) *ConstructionError {
	return &ConstructionError{Reason: fmt.Sprintf(format, args...)}
}

// BuildTransfer constructs an unsigned envelope whose sole fee payer is
// payerAddress and whose single instruction transfers exactly amountBaseUnits
// of asset to recipientAddress. It is a pure function of its inputs: the
// blockhash is supplied by the caller so that retries can re-stamp a fresh one
// without re-deriving anything else.
func BuildTransfer(payerAddress, recipientAddress, asset string, amountBaseUnits int64, blockhash string) (*Envelope, error) {
	if !strkey.IsValidEd25519PublicKey(payerAddress) {
		return nil, newConstructionError("payer address %q is not a valid ed25519 public key", payerAddress)
	}
	if !strkey.IsValidEd25519PublicKey(recipientAddress) {
		return nil, newConstructionError("recipient address %q is not a valid ed25519 public key", recipientAddress)
	}
	if !strkey.IsValidContractAddress(asset) {
		return nil, newConstructionError("asset %q is not a valid contract address", asset)
	}
	if amountBaseUnits <= 0 {
		return nil, newConstructionError("amount must be greater than zero, got %d", amountBaseUnits)
	}
	if blockhash == "" {
		return nil, newConstructionError("blockhash cannot be empty")
	}

	return &Envelope{
		FeePayer:  payerAddress,
		Blockhash: blockhash,
		Instructions: []TransferInstruction{
			{
				Source:          payerAddress,
				Destination:     recipientAddress,
				Asset:           asset,
				AmountBaseUnits: amountBaseUnits,
			},
		},
	}, nil
}
