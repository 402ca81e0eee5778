package monitor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellar/go-stellar-sdk/support/log"
)

type prometheusClient struct {
	httpHandler http.Handler
}

func (prometheusClient) GetMetricType() MetricType {
	return MetricTypePrometheus
}

func (p *prometheusClient) GetMetricHttpHandler() http.Handler {
	return p.httpHandler
}

func (p *prometheusClient) MonitorHttpRequestDuration(duration time.Duration, labels HTTPRequestLabels) {
	SummaryVecMetrics[HTTPRequestDurationTag].With(prometheus.Labels{
		"status": labels.Status,
		"route":  labels.Route,
		"method": labels.Method,
	}).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) {
	if summary, ok := SummaryVecMetrics[tag]; ok {
		summary.With(labels).Observe(duration.Seconds())
	} else {
		log.Errorf("metric not registered in Prometheus SummaryVecMetrics: %s", tag)
	}
}

func (p *prometheusClient) MonitorCounters(tag MetricTag, labels map[string]string) {
	if counterVecMetric, ok := CounterVecMetrics[tag]; ok {
		counterVecMetric.With(labels).Inc()
	} else {
		log.Errorf("metric not registered in Prometheus CounterVecMetrics: %s", tag)
	}
}

func NewPrometheusClient() (*prometheusClient, error) {
	metricsRegistry := prometheus.NewRegistry()

	var metricTag MetricTag
	for _, tag := range metricTag.ListAll() {
		if summaryVecMetric, ok := SummaryVecMetrics[tag]; ok {
			metricsRegistry.MustRegister(summaryVecMetric)
		} else if counterVecMetric, ok := CounterVecMetrics[tag]; ok {
			metricsRegistry.MustRegister(counterVecMetric)
		} else {
			return nil, fmt.Errorf("metric not registered in prometheus metrics: %s", tag)
		}
	}

	return &prometheusClient{httpHandler: promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})}, nil
}

var _ MonitorClient = (*prometheusClient)(nil)
