package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/stellar/go-stellar-sdk/keypair"
)

// envelopeEncMode is the deterministic CBOR encoding mode used for the
// transaction wire format. Determinism matters here: the gateway verifies
// payments against the exact bytes that were signed, so re-encoding the same
// envelope must always produce the same bytes.
var envelopeEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("creating envelope CBOR encoding mode: %v", err))
	}
	envelopeEncMode = em
}

// TransferInstruction moves AmountBaseUnits of Asset from Source to
// Destination. It is the only instruction type the gaslift network model
// needs: top-ups are a single transfer to the gateway's deposit address, and
// sponsored transactions carry the user's own transfers.
type TransferInstruction struct {
	Source          string `cbor:"1,keyasint" json:"source"`
	Destination     string `cbor:"2,keyasint" json:"destination"`
	Asset           string `cbor:"3,keyasint" json:"asset"`
	AmountBaseUnits int64  `cbor:"4,keyasint" json:"amountBaseUnits"`
}

// Signature is an ed25519 signature produced by the account identified by
// Address over the envelope's signing payload.
type Signature struct {
	Address string `cbor:"1,keyasint" json:"address"`
	Payload []byte `cbor:"2,keyasint" json:"payload"`
}

// Envelope is the network transaction envelope. FeePayer is the account that
// pays the network fee; it is left empty in sponsorship flows until the
// gateway countersigns as fee payer.
type Envelope struct {
	FeePayer     string                `cbor:"1,keyasint" json:"feePayer"`
	Blockhash    string                `cbor:"2,keyasint" json:"blockhash"`
	Instructions []TransferInstruction `cbor:"3,keyasint" json:"instructions"`
	Signatures   []Signature           `cbor:"4,keyasint,omitempty" json:"signatures,omitempty"`
}

// envelopeCBOR is Envelope without its methods: encoding it directly keeps
// the cbor encoder from calling Envelope.MarshalBinary back and recursing.
type envelopeCBOR Envelope

// MarshalBinary returns the deterministic CBOR encoding of the envelope.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	b, err := envelopeEncMode.Marshal((*envelopeCBOR)(e))
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return b, nil
}

// Base64 returns the base64-encoded envelope, the framing used on every wire
// surface (gateway requests, signer requests, payment payloads).
func (e *Envelope) Base64() (string, error) {
	b, err := e.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeEnvelope parses a base64-framed CBOR envelope.
func DecodeEnvelope(envelopeBase64 string) (*Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(envelopeBase64)
	if err != nil {
		return nil, fmt.Errorf("envelope is not valid base64: %w", err)
	}

	var envelope Envelope
	if err = cbor.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("envelope is not valid CBOR: %w", err)
	}

	return &envelope, nil
}

// SigningPayload returns the bytes that signers commit to: the deterministic
// encoding of the envelope with its signature list stripped.
func (e *Envelope) SigningPayload() ([]byte, error) {
	unsigned := Envelope{
		FeePayer:     e.FeePayer,
		Blockhash:    e.Blockhash,
		Instructions: e.Instructions,
	}

	payload, err := unsigned.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding signing payload: %w", err)
	}

	digest := sha256.Sum256(payload)
	return digest[:], nil
}

// Hash returns the hex-encoded transaction hash, used as the transaction id
// throughout the system. It is derived from the signing payload so it stays
// stable as signatures are attached.
func (e *Envelope) Hash() (string, error) {
	payload, err := e.SigningPayload()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(payload), nil
}

// AttachSignature appends a signature, replacing any previous signature from
// the same address.
func (e *Envelope) AttachSignature(address string, payload []byte) {
	for i, sig := range e.Signatures {
		if sig.Address == address {
			e.Signatures[i].Payload = payload
			return
		}
	}
	e.Signatures = append(e.Signatures, Signature{Address: address, Payload: payload})
}

// SignatureFor returns the signature attached for the given address, if any.
func (e *Envelope) SignatureFor(address string) ([]byte, bool) {
	for _, sig := range e.Signatures {
		if sig.Address == address {
			return sig.Payload, true
		}
	}
	return nil, false
}

// VerifySignatures checks every attached signature against the envelope's
// signing payload.
func (e *Envelope) VerifySignatures() error {
	payload, err := e.SigningPayload()
	if err != nil {
		return err
	}

	for _, sig := range e.Signatures {
		kp, kpErr := keypair.ParseAddress(sig.Address)
		if kpErr != nil {
			return fmt.Errorf("parsing signer address %q: %w", sig.Address, kpErr)
		}
		if verifyErr := kp.Verify(payload, sig.Payload); verifyErr != nil {
			return fmt.Errorf("signature from %q does not verify: %w", sig.Address, verifyErr)
		}
	}

	return nil
}

// Equal reports whether two envelopes encode to the same bytes.
func (e *Envelope) Equal(other *Envelope) bool {
	if other == nil {
		return false
	}
	eBytes, err := e.MarshalBinary()
	if err != nil {
		return false
	}
	otherBytes, err := other.MarshalBinary()
	if err != nil {
		return false
	}
	return bytes.Equal(eBytes, otherBytes)
}
