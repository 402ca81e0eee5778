package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/ledger"
	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/serve/validators"
	"github.com/gaslift/gaslift-backend/internal/sessionauth"
	"github.com/gaslift/gaslift-backend/internal/sponsor"
)

type TopupHandler struct {
	Orchestrator  sponsor.OrchestratorInterface
	GatewayClient gateway.ClientInterface
	BalanceCache  ledger.BalanceCacheInterface
}

type TopupRequestBody struct {
	AmountBaseUnits int64  `json:"amount"`
	PaymentBase64   string `json:"payment"`
	SessionProof    string `json:"sessionProof"`
}

type TopupResponseBody struct {
	State           string `json:"state"`
	WalletAddress   string `json:"walletAddress"`
	AmountBaseUnits int64  `json:"amount"`
	TxSignature     string `json:"txSignature"`
	PaymentID       string `json:"paymentId"`
}

// GetRequirements proxies the gateway's current payment requirements so a
// client can inspect price and destination before committing to a top-up.
func (h TopupHandler) GetRequirements(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	requirements, err := h.GatewayClient.GetTopupRequirements(ctx)
	if err != nil {
		log.Ctx(ctx).Errorf("Cannot fetch top-up requirements: %v", err)
		renderFlowError(ctx, rw, err)
		return
	}

	httpjson.Render(rw, requirements, httpjson.JSON)
}

// PostTopup credits the authenticated wallet. A request with an amount runs
// the full build-sign-pay flow, spending under the body's sessionProof; a
// request with a pre-built payment payload is forwarded to the gateway as-is
// and needs no proof, since the payment already embeds a signed transaction.
func (h TopupHandler) PostTopup(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	claims := sessionauth.GetSessionClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
		return
	}

	var reqBody TopupRequestBody
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadRequest("", err, nil).WithErrorCode(httperror.Code400_0).Render(rw)
		return
	}

	validator := validators.NewTopupRequestValidator()
	validator.ValidateTopupRequest(reqBody.AmountBaseUnits, reqBody.PaymentBase64, reqBody.SessionProof)
	if validator.HasErrors() {
		httperror.BadRequest("Request invalid", nil, validator.Errors).Render(rw)
		return
	}

	if reqBody.PaymentBase64 != "" {
		h.submitPreparedPayment(rw, req, claims.WalletAddress(), reqBody.PaymentBase64)
		return
	}

	outcome, err := h.Orchestrator.TopUp(ctx, sponsor.TopupRequest{
		WalletAddress:   claims.WalletAddress(),
		AmountBaseUnits: reqBody.AmountBaseUnits,
		SessionProof:    reqBody.SessionProof,
	})
	if err != nil {
		log.Ctx(ctx).Errorf("Top-up failed for wallet %s: %v", claims.WalletAddress(), err)
		renderFlowError(ctx, rw, err)
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, TopupResponseBody{
		State:           string(outcome.State),
		WalletAddress:   claims.WalletAddress(),
		AmountBaseUnits: outcome.AmountBaseUnits,
		TxSignature:     outcome.TxSignature,
		PaymentID:       outcome.PaymentID,
	}, httpjson.JSON)
}

// submitPreparedPayment forwards a payment payload built by the caller. The
// gateway verifies the embedded transaction; the handler only invalidates the
// cached balance once the credit lands.
func (h TopupHandler) submitPreparedPayment(rw http.ResponseWriter, req *http.Request, walletAddress, paymentBase64 string) {
	ctx := req.Context()

	result, err := h.GatewayClient.SubmitTopup(ctx, paymentBase64)
	if err != nil {
		log.Ctx(ctx).Errorf("Prepared payment submission failed for wallet %s: %v", walletAddress, err)
		renderFlowError(ctx, rw, err)
		return
	}

	h.BalanceCache.Invalidate(result.WalletAddress)

	httpjson.RenderStatus(rw, http.StatusCreated, TopupResponseBody{
		State:           string(sponsor.StateSettled),
		WalletAddress:   result.WalletAddress,
		AmountBaseUnits: result.AmountBaseUnits,
		TxSignature:     result.TxSignature,
		PaymentID:       result.PaymentID,
	}, httpjson.JSON)
}
