package monitor

type MetricTag string

const (
	HTTPRequestDurationTag MetricTag = "requests_duration_seconds"
	// Gateway API requests:
	GatewayAPIRequestDurationTag MetricTag = "gateway_api_request_duration_seconds"
	GatewayAPIRequestsTotalTag   MetricTag = "gateway_api_requests_total"
	// Credit flows:
	TopupsCounterTag          MetricTag = "topups_counter"
	SponsorshipsCounterTag    MetricTag = "sponsorships_counter"
	ConfirmationPollsTotalTag MetricTag = "confirmation_polls_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		HTTPRequestDurationTag,
		GatewayAPIRequestDurationTag,
		GatewayAPIRequestsTotalTag,
		TopupsCounterTag,
		SponsorshipsCounterTag,
		ConfirmationPollsTotalTag,
	}
}
