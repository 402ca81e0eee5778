package validators

import (
	"github.com/asaskevich/govalidator"
)

type SponsorRequestValidator struct {
	*Validator
}

func NewSponsorRequestValidator() *SponsorRequestValidator {
	return &SponsorRequestValidator{
		Validator: NewValidator(),
	}
}

// ValidateSponsorRequest validates the sponsorship request body. The
// transaction envelope is only checked for framing here. Instruction-level
// checks happen after decoding. The sessionProof is required because the
// gateway bills the wallet's credit under it; the caller's bearer credential
// does not authorize spending.
func (sv *SponsorRequestValidator) ValidateSponsorRequest(transactionBase64, sessionProof string) {
	sv.Check(transactionBase64 != "", "transaction", "transaction is required")
	sv.Check(sessionProof != "", "sessionProof", "sessionProof is required")
	if sv.HasErrors() {
		return
	}

	sv.Check(govalidator.IsBase64(transactionBase64), "transaction", "transaction must be a base64 encoded envelope")
}
