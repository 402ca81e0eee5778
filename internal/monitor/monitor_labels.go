package monitor

type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

type GatewayLabels struct {
	Method     string
	Endpoint   string
	Status     string
	StatusCode string
}

func (g GatewayLabels) ToMap() map[string]string {
	return map[string]string{
		"method":      g.Method,
		"endpoint":    g.Endpoint,
		"status":      g.Status,
		"status_code": g.StatusCode,
	}
}

var GatewayLabelNames = []string{"method", "endpoint", "status", "status_code"}

type FlowLabels struct {
	Outcome string
	Asset   string
}

func (f FlowLabels) ToMap() map[string]string {
	return map[string]string{
		"outcome": f.Outcome,
		"asset":   f.Asset,
	}
}

var FlowLabelNames = []string{"outcome", "asset"}
