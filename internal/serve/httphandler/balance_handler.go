package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/sessionauth"
	"github.com/gaslift/gaslift-backend/internal/sponsor"
)

type BalanceHandler struct {
	Orchestrator             sponsor.OrchestratorInterface
	LowBalanceThresholdUnits int64
	AssetDecimals            int32
}

type BalanceResponse struct {
	WalletAddress        string         `json:"walletAddress"`
	BalanceBaseUnits     int64          `json:"balance"`
	PendingBaseUnits     int64          `json:"pending"`
	AvailableBaseUnits   int64          `json:"available"`
	BalanceDisplayAmount string         `json:"balanceDisplayAmount"`
	LowBalance           bool           `json:"lowBalance"`
	Topups               []ledger.Topup `json:"topups,omitempty"`
	Usages               []ledger.Usage `json:"usages,omitempty"`
}

type BalanceRequest struct {
	WalletAddress string `json:"walletAddress"`
	SessionProof  string `json:"sessionProof"`
}

// GetBalance returns the gas credit balance for the authenticated wallet. The
// caller credential in the Authorization header identifies who is asking; the
// sessionProof in the body authorizes reading the wallet's ledger and is
// forwarded to the gateway verbatim. The balance is served from the
// short-lived cache when fresh, so a value may lag a concurrent spend by a
// few seconds.
func (h BalanceHandler) GetBalance(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	claims := sessionauth.GetSessionClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
		return
	}

	walletAddress := claims.WalletAddress()

	var reqBody BalanceRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadRequest("", err, nil).WithErrorCode(httperror.Code400_0).Render(rw)
		return
	}

	if reqBody.WalletAddress != "" && reqBody.WalletAddress != walletAddress {
		// The caller credential only attests its own wallet.
		httperror.Unauthorized("The session does not attest the requested wallet.", nil, nil).
			WithErrorCode(httperror.Code401_0).
			Render(rw)
		return
	}

	if reqBody.SessionProof == "" {
		httperror.Unauthorized("The request is missing the wallet session proof.", nil, nil).
			WithErrorCode(httperror.Code401_0).
			Render(rw)
		return
	}

	balance, err := h.Orchestrator.Balance(ctx, walletAddress, reqBody.SessionProof)
	if err != nil {
		log.Ctx(ctx).Errorf("Cannot fetch balance for wallet %s: %v", walletAddress, err)
		renderFlowError(ctx, rw, err)
		return
	}

	resp := BalanceResponse{
		WalletAddress:        balance.WalletAddress,
		BalanceBaseUnits:     balance.BalanceBaseUnits,
		PendingBaseUnits:     balance.PendingBaseUnits,
		AvailableBaseUnits:   balance.AvailableBaseUnits(),
		BalanceDisplayAmount: ledger.DisplayAmount(balance.BalanceBaseUnits, h.AssetDecimals),
		LowBalance:           balance.IsLow(h.LowBalanceThresholdUnits),
		Topups:               balance.Topups,
		Usages:               balance.Usages,
	}
	httpjson.Render(rw, resp, httpjson.JSON)
}
