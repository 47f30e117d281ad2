// Package metrics exposes pipeline counters for Prometheus scraping.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the ingestion and parsing counters. A nil *Metrics is
// valid and turns every increment into a no-op, so the core packages
// work without a registry wired in.
type Metrics struct {
	ingested     prometheus.Counter
	malformed    prometheus.Counter
	readFailures prometheus.Counter
	parsed       *prometheus.CounterVec
}

// New creates the metric set.
func New() *Metrics {
	return &Metrics{
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sieman_records_ingested_total",
			Help: "Total number of raw records produced by ingestors",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sieman_records_malformed_total",
			Help: "Total number of records dropped as malformed",
		}),
		readFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sieman_read_failures_total",
			Help: "Total number of source read failures",
		}),
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sieman_records_parsed_total",
			Help: "Total number of records parsed, by format",
		}, []string{"format"}),
	}
}

// Register registers all metrics with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.ingested, m.malformed, m.readFailures, m.parsed)
}

// IncIngested counts one raw record handed to the pipeline.
func (m *Metrics) IncIngested() {
	if m == nil {
		return
	}
	m.ingested.Inc()
}

// IncMalformed counts one record dropped as malformed.
func (m *Metrics) IncMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

// IncReadFailure counts one source read failure.
func (m *Metrics) IncReadFailure() {
	if m == nil {
		return
	}
	m.readFailures.Inc()
}

// IncParsed counts one parsed record for the given format.
func (m *Metrics) IncParsed(format string) {
	if m == nil {
		return
	}
	m.parsed.WithLabelValues(format).Inc()
}
