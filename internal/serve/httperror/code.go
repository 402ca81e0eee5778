package httperror

const (
	Code400_0 = "400_0" // Invalid request body.
	Code400_1 = "400_1" // The transaction blockhash went stale before the gateway accepted it.
	Code400_2 = "400_2" // The transaction could not be constructed from the request.
	Code401_0 = "401_0" // Not authorized.
	Code402_0 = "402_0" // Insufficient gas credit balance.
	Code500_0 = "500_0" // An internal error occurred while processing this request.
	Code500_1 = "500_1" // Cannot reach the sponsorship gateway.
	Code500_2 = "500_2" // Transaction confirmation timed out.
)
