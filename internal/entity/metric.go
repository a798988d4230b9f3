package entity

// Provider statuses attached to a metrics lookup.
const (
	MetricStatusOK     = "ok"
	MetricStatusCached = "cached"
	MetricStatusError  = "error"
	MetricStatusNA     = "n/a"
)

// Metric is one authority-score lookup outcome for a URL.
type Metric struct {
	PA     *float64
	DA     *float64
	Status string
	Err    string
}

// CachedMetric is the value stored in the provider cache.
type CachedMetric struct {
	PA *float64 `json:"pa"`
	DA *float64 `json:"da"`
}
