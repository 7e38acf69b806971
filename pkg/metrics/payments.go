package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout modes and callback outcomes used as label values.
const (
	ModeSingle = "single"
	ModeCart   = "cart"

	OutcomeSuccess          = "success"
	OutcomeFailed           = "failed"
	OutcomeReplayed         = "replayed"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRejected         = "rejected"
	OutcomeExpired          = "expired"
	OutcomeRevived          = "revived"
)

// PaymentMetrics counts registrations and gateway callback outcomes.
type PaymentMetrics struct {
	registrations *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment counters. A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_created_total",
		Help:      "Registrations committed with a pending payment.",
	}, []string{"mode"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_callbacks_total",
		Help:      "Gateway callbacks by processing outcome.",
	}, []string{"outcome"})
	reg.MustRegister(registrations, callbacks)
	return &PaymentMetrics{registrations: registrations, callbacks: callbacks}
}

func (p *PaymentMetrics) IncRegistration(mode string) {
	if p == nil || p.registrations == nil {
		return
	}
	p.registrations.WithLabelValues(normalizeLabel(mode)).Inc()
}

func (p *PaymentMetrics) IncCallback(outcome string) {
	if p == nil || p.callbacks == nil {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddCallbacks records n callbacks with one outcome, used by batch expiry.
func (p *PaymentMetrics) AddCallbacks(outcome string, n int) {
	if p == nil || p.callbacks == nil || n <= 0 {
		return
	}
	p.callbacks.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}
