package httphandler

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/gaslift/gaslift-backend/internal/sessionauth"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

// ctxWithSession mimics what the bearer-token middleware stores for an
// authenticated request. The sessionProof never lives in the context: it
// travels in request bodies.
func ctxWithSession(ctx context.Context, walletAddress string) context.Context {
	claims := &sessionauth.SessionJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "session-1",
			Subject:   walletAddress,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	return context.WithValue(ctx, sessionauth.SessionClaimsContextKey, claims)
}

func testPaymentRequirements() *x402.PaymentRequirements {
	return &x402.PaymentRequirements{
		X402Version: x402.X402Version,
		Accepts: []x402.RequirementOption{
			{
				Scheme:            x402.SchemeExact,
				Network:           "testnet",
				Asset:             "CASSET",
				PayTo:             "GPAYTO",
				MaxAmountRequired: "10000000",
			},
		},
	}
}
