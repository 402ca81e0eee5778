package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "gaslift", Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	GatewayAPIRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "gaslift", Subsystem: "gateway", Name: string(GatewayAPIRequestDurationTag),
		Help: "Gateway API request durations",
	},
		GatewayLabelNames,
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	GatewayAPIRequestsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaslift", Subsystem: "gateway", Name: string(GatewayAPIRequestsTotalTag),
		Help: "A counter of gateway API requests",
	},
		GatewayLabelNames,
	),
	TopupsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaslift", Subsystem: "credit", Name: string(TopupsCounterTag),
		Help: "A counter of processed top-ups, labeled by outcome",
	},
		FlowLabelNames,
	),
	SponsorshipsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaslift", Subsystem: "credit", Name: string(SponsorshipsCounterTag),
		Help: "A counter of processed sponsorships, labeled by outcome",
	},
		FlowLabelNames,
	),
	ConfirmationPollsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaslift", Subsystem: "chain", Name: string(ConfirmationPollsTotalTag),
		Help: "A counter of confirmation polling outcomes",
	},
		[]string{"outcome"},
	),
}
