package httphandler

import (
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/gaslift/gaslift-backend/internal/serve/httperror"
	"github.com/gaslift/gaslift-backend/internal/serve/validators"
	"github.com/gaslift/gaslift-backend/internal/sessionauth"
	"github.com/gaslift/gaslift-backend/internal/sponsor"
)

type SponsorHandler struct {
	Orchestrator sponsor.OrchestratorInterface
}

type SponsorRequestBody struct {
	TransactionBase64 string `json:"transaction"`
	SessionProof      string `json:"sessionProof"`
}

type SponsorResponseBody struct {
	State           string `json:"state"`
	TxSignature     string `json:"txSignature"`
	BilledBaseUnits int64  `json:"billed"`
	FeeBaseUnits    int64  `json:"fee"`
}

// PostSponsor runs the fee sponsorship flow for a caller-built transaction
// envelope. The gateway fronts the network fee and bills the wallet's gas
// credit; insufficient credit is returned as 402 with the gateway's numbers.
func (h SponsorHandler) PostSponsor(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	claims := sessionauth.GetSessionClaims(ctx)
	if claims == nil {
		httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
		return
	}

	var reqBody SponsorRequestBody
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		httperror.BadRequest("", err, nil).WithErrorCode(httperror.Code400_0).Render(rw)
		return
	}

	validator := validators.NewSponsorRequestValidator()
	validator.ValidateSponsorRequest(reqBody.TransactionBase64, reqBody.SessionProof)
	if validator.HasErrors() {
		httperror.BadRequest("Request invalid", nil, validator.Errors).Render(rw)
		return
	}

	outcome, err := h.Orchestrator.Sponsor(ctx, sponsor.SponsorRequest{
		WalletAddress:  claims.WalletAddress(),
		EnvelopeBase64: reqBody.TransactionBase64,
		SessionProof:   reqBody.SessionProof,
	})
	if err != nil {
		log.Ctx(ctx).Errorf("Sponsorship failed for wallet %s: %v", claims.WalletAddress(), err)
		renderFlowError(ctx, rw, err)
		return
	}

	httpjson.RenderStatus(rw, http.StatusCreated, SponsorResponseBody{
		State:           string(outcome.State),
		TxSignature:     outcome.TxSignature,
		BilledBaseUnits: outcome.BilledBaseUnits,
		FeeBaseUnits:    outcome.FeeBaseUnits,
	}, httpjson.JSON)
}
