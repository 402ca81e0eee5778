package validators

import (
	"github.com/asaskevich/govalidator"
)

type TopupRequestValidator struct {
	*Validator
}

func NewTopupRequestValidator() *TopupRequestValidator {
	return &TopupRequestValidator{
		Validator: NewValidator(),
	}
}

// ValidateTopupRequest validates the top-up request body. A request carries
// either an amount to be orchestrated end to end, or a pre-built payment
// payload to be forwarded to the gateway, never both. The orchestrated path
// spends from the wallet, so it must carry the sessionProof that authorizes
// it; a pre-built payment already embeds a signed transaction.
func (tv *TopupRequestValidator) ValidateTopupRequest(amountBaseUnits int64, paymentBase64, sessionProof string) {
	hasAmount := amountBaseUnits != 0
	hasPayment := paymentBase64 != ""

	tv.Check(hasAmount || hasPayment, "amount", "either amount or payment is required")
	if tv.HasErrors() {
		return
	}

	tv.Check(!(hasAmount && hasPayment), "amount", "amount and payment are mutually exclusive")

	if hasAmount {
		tv.Check(amountBaseUnits > 0, "amount", "amount must be greater than zero")
		tv.Check(sessionProof != "", "sessionProof", "sessionProof is required")
	}

	if hasPayment {
		tv.Check(govalidator.IsBase64(paymentBase64), "payment", "payment must be a base64 encoded payload")
	}
}
