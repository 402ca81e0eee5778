package sessionauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stellar/go-stellar-sdk/strkey"
)

// SessionJWTClaims are the claims carried by a session proof token. The
// subject is the wallet address whose spend authority the token attests, and
// the registered ID is the session identifier issued by the custodial signer.
type SessionJWTClaims struct {
	jwt.RegisteredClaims
}

func (c *SessionJWTClaims) SessionID() string {
	return c.ID
}

func (c *SessionJWTClaims) WalletAddress() string {
	return c.Subject
}

func (c *SessionJWTClaims) ExpiresAt() *time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return nil
	}
	return &c.RegisteredClaims.ExpiresAt.Time
}

func (c SessionJWTClaims) Valid() error {
	if c.ExpiresAt() == nil {
		return fmt.Errorf("expires_at is required")
	}

	err := c.RegisteredClaims.Valid()
	if err != nil {
		return fmt.Errorf("validating registered claims: %w", err)
	}

	if c.SessionID() == "" {
		return fmt.Errorf("session_id is required")
	}

	if !strkey.IsValidEd25519PublicKey(c.WalletAddress()) {
		return fmt.Errorf("wallet address %q is not a valid ed25519 public key", c.WalletAddress())
	}

	return nil
}
