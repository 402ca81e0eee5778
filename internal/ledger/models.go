// Package ledger holds this process's view of a wallet's gas credit: balance,
// pending amount, and top-up/usage history. The gateway is the authoritative
// store; everything here is rebuilt from gateway responses and is advisory
// only. A cached balance must never be used to authorize spending, only to
// warn the user and to decide whether to prompt a top-up.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UsageStatus is the billing lifecycle of a sponsorship.
type UsageStatus string

const (
	// UsageStatusPending means sponsorship was granted and the transaction
	// was submitted to the network but not yet confirmed.
	UsageStatusPending UsageStatus = "pending"
	// UsageStatusSettled means the transaction confirmed and the credit debit
	// is final.
	UsageStatusSettled UsageStatus = "settled"
	// UsageStatusFailed means the transaction did not land; the gateway
	// refunds the billed amount within a bounded window. Terminal.
	UsageStatusFailed UsageStatus = "failed"
)

// UsageStatuses returns all valid usage statuses.
func UsageStatuses() []UsageStatus {
	return []UsageStatus{UsageStatusPending, UsageStatusSettled, UsageStatusFailed}
}

// Validate reports whether the status is one the gateway can return.
func (s UsageStatus) Validate() error {
	switch s {
	case UsageStatusPending, UsageStatusSettled, UsageStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid usage status %q", s)
	}
}

// TransitionTo validates a status transition. Pending may settle or fail;
// settled and failed are terminal.
func (s UsageStatus) TransitionTo(target UsageStatus) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if s == UsageStatusPending && (target == UsageStatusSettled || target == UsageStatusFailed) {
		return nil
	}
	return fmt.Errorf("cannot transition usage status from %q to %q", s, target)
}

// Topup is a completed credit purchase. Created only after the gateway
// accepts a payment payload; immutable thereafter.
type Topup struct {
	PaymentID       string    `json:"paymentId"`
	TxSignature     string    `json:"txSignature"`
	AmountBaseUnits int64     `json:"amountBaseUnits"`
	Timestamp       time.Time `json:"timestamp"`
}

// Usage is a sponsorship billing event.
type Usage struct {
	TxSignature     string      `json:"txSignature"`
	AmountBaseUnits int64       `json:"amountBaseUnits"`
	Status          UsageStatus `json:"status"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Balance is per-wallet gateway-side accounting, fetched not owned.
type Balance struct {
	WalletAddress    string  `json:"wallet"`
	BalanceBaseUnits int64   `json:"balanceBaseUnits"`
	PendingBaseUnits int64   `json:"pendingBaseUnits"`
	Topups           []Topup `json:"topups"`
	Usages           []Usage `json:"usages"`
}

// AvailableBaseUnits is the settled balance minus in-flight usages. Derived,
// never persisted, and clamped at zero: the client's view must never go
// negative even if a refresh races a settlement.
func (b *Balance) AvailableBaseUnits() int64 {
	available := b.BalanceBaseUnits - b.PendingBaseUnits
	if available < 0 {
		return 0
	}
	return available
}

// IsLow reports whether the available balance is at or below the given
// threshold, used to surface a proactive low-balance warning.
func (b *Balance) IsLow(thresholdBaseUnits int64) bool {
	return b.AvailableBaseUnits() <= thresholdBaseUnits
}

// DisplayAmount formats an amount of base units as a decimal string with the
// given number of asset decimals, e.g. 1_500_000 with 6 decimals -> "1.5".
func DisplayAmount(baseUnits int64, decimals int32) string {
	return decimal.New(baseUnits, -decimals).String()
}
