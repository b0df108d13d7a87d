package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinytelemetry/lookout/internal/provision"
)

var (
	RecordsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_records_received_total",
			Help: "Total number of log records decoded by providers.",
		},
		[]string{"provider"},
	)

	DecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_decode_errors_total",
			Help: "Total number of payloads a provider could not decode.",
		},
		[]string{"provider"},
	)

	RecordsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_records_dropped_total",
			Help: "Total number of records addressed to a log that no longer exists.",
		},
	)

	ProvisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_provisions_total",
			Help: "Total number of provisioning attempts by entry point and result.",
		},
		[]string{"kind", "result"},
	)

	ProvidersStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_providers_started_total",
			Help: "Total number of providers that started.",
		},
	)

	ProviderFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_provider_failures_total",
			Help: "Total number of providers that could not be created or started.",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_sessions_active",
			Help: "Number of pipelines in the session registry.",
		},
	)

	LastProvisionTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_last_provision_timestamp_seconds",
			Help: "Unix timestamp of the last provisioning attempt.",
		},
	)
)

func init() {
	prometheus.MustRegister(RecordsReceivedTotal)
	prometheus.MustRegister(DecodeErrorsTotal)
	prometheus.MustRegister(RecordsDroppedTotal)
	prometheus.MustRegister(ProvisionsTotal)
	prometheus.MustRegister(ProvidersStartedTotal)
	prometheus.MustRegister(ProviderFailuresTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(LastProvisionTimestamp)
}

// Result classifies a provisioning outcome for the result label.
func Result(o provision.Outcome) string {
	switch {
	case o.Err == nil:
		return "ok"
	case isPartial(o):
		return "partial"
	default:
		return "rejected"
	}
}

func isPartial(o provision.Outcome) bool {
	var partial *provision.ProvisionError
	return errors.As(o.Err, &partial)
}

// Observer records provisioning outcomes as metrics.
type Observer struct{}

func (Observer) Observe(o provision.Outcome) {
	ProvisionsTotal.WithLabelValues(string(o.Kind), Result(o)).Inc()
	ProvidersStartedTotal.Add(float64(o.Started))
	if isPartial(o) {
		ProviderFailuresTotal.Add(float64(o.Requested - o.Started))
	}
	at := o.At
	if at.IsZero() {
		at = time.Now()
	}
	LastProvisionTimestamp.Set(float64(at.Unix()))
}
