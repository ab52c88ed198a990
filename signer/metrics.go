package signer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects signing and verification counters. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	signatures    *prometheus.CounterVec
	signFailures  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	signAttempts  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certsign",
			Name:      "signatures_total",
			Help:      "Signatures produced, by algorithm.",
		}, []string{"algorithm"}),
		signFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certsign",
			Name:      "sign_failures_total",
			Help:      "Signing requests that failed, by algorithm and reason.",
		}, []string{"algorithm", "reason"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certsign",
			Name:      "verifications_total",
			Help:      "Signature verifications, by algorithm and result.",
		}, []string{"algorithm", "result"}),
		signAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "certsign",
			Name:      "sign_attempts",
			Help:      "Nonces drawn per successful signature.",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 100},
		}, []string{"algorithm"}),
	}

	reg.MustRegister(m.signatures, m.signFailures, m.verifications, m.signAttempts)
	return m
}

func (m *Metrics) signed(alg string, attempts int) {
	if m == nil {
		return
	}
	m.signatures.WithLabelValues(alg).Inc()
	m.signAttempts.WithLabelValues(alg).Observe(float64(attempts))
}

func (m *Metrics) signFailed(alg, reason string) {
	if m == nil {
		return
	}
	m.signFailures.WithLabelValues(alg, reason).Inc()
}

func (m *Metrics) verified(alg, result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(alg, result).Inc()
}
