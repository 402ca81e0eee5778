package httphandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gaslift/gaslift-backend/internal/chain"
	"github.com/gaslift/gaslift-backend/internal/gateway"
	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/signer"
	"github.com/gaslift/gaslift-backend/internal/x402"
)

// renderFlowError translates a top-up or sponsorship flow error into the HTTP
// response the caller sees. Insufficient balance surfaces the gateway's
// required and available amounts unchanged. A blockhash that is still stale
// after the automatic rebuild is a client-actionable 400, never an internal
// error.
func renderFlowError(ctx context.Context, rw http.ResponseWriter, err error) {
	var insufficientErr *gateway.InsufficientBalanceError
	if errors.As(err, &insufficientErr) {
		httperror.PaymentRequired("", err, insufficientErr.RequiredBaseUnits, insufficientErr.AvailableBaseUnits).
			WithErrorCode(httperror.Code402_0).
			Render(rw)
		return
	}

	if errors.Is(err, gateway.ErrGatewayUnavailable) {
		httperror.ServiceUnavailable("", err, nil).WithErrorCode(httperror.Code500_1).Render(rw)
		return
	}

	var staleErr *gateway.StaleBlockhashError
	if errors.As(err, &staleErr) {
		httperror.BadRequest("The transaction blockhash went stale before the gateway accepted it. Please try again.", err, nil).
			WithErrorCode(httperror.Code400_1).
			Render(rw)
		return
	}

	var mismatchErr *x402.NetworkAssetMismatchError
	if errors.As(err, &mismatchErr) {
		httperror.BadRequest("The gateway requirements do not match this network or asset.", err, map[string]interface{}{
			"field": mismatchErr.Field,
		}).Render(rw)
		return
	}

	var constructionErr *chain.ConstructionError
	if errors.As(err, &constructionErr) {
		httperror.BadRequest("", err, map[string]interface{}{
			"reason": constructionErr.Reason,
		}).WithErrorCode(httperror.Code400_2).Render(rw)
		return
	}

	var timeoutErr *signer.ConfirmationTimeoutError
	if errors.As(err, &timeoutErr) {
		httperror.InternalError(ctx, "Transaction confirmation timed out.", err, map[string]interface{}{
			"tx_signature": timeoutErr.TxSignature,
		}).WithErrorCode(httperror.Code500_2).Render(rw)
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		httperror.NewHTTPError(apiErr.StatusCode, apiErr.Message, err, nil).Render(rw)
		return
	}

	httperror.InternalError(ctx, "", err, nil).WithErrorCode(httperror.Code500_0).Render(rw)
}
