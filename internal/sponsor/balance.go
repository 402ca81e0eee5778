package sponsor

import (
	"context"
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/gaslift/gaslift-backend/internal/ledger"
)

// Balance returns the wallet's gas credit balance and history, served from
// the short-TTL cache when possible. The cached value is advisory only: it
// warns the user and decides whether to prompt a top-up, it never authorizes
// spending — the gateway stays the single source of truth for admissibility.
func (o *Orchestrator) Balance(ctx context.Context, walletAddress, sessionProof string) (*ledger.Balance, error) {
	if cached, ok := o.balanceCache.Get(walletAddress); ok {
		log.Ctx(ctx).Debugf("serving cached balance for wallet %s", walletAddress)
		return cached, nil
	}

	balance, err := o.gatewayClient.GetBalance(ctx, walletAddress, sessionProof)
	if err != nil {
		return nil, fmt.Errorf("fetching balance from gateway: %w", err)
	}

	o.balanceCache.Set(walletAddress, balance)
	return balance, nil
}
