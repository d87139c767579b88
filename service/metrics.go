package service

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the counters
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeAccepted = "accepted"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	walletLogins   *prometheus.CounterVec
	authRequests   *prometheus.CounterVec
	leadsSubmitted *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		walletLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyberaudit",
			Name:      "wallet_logins_total",
			Help:      "Wallet login attempts by connection variant and outcome.",
		}, []string{"variant", "outcome"}),
		authRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyberaudit",
			Name:      "auth_requests_total",
			Help:      "Email/password authentication requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		leadsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyberaudit",
			Name:      "leads_submitted_total",
			Help:      "Contact form submissions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.walletLogins, m.authRequests, m.leadsSubmitted)
	}
	return m
}

func (m *Metrics) walletLogin(variant ConnectionKind, outcome string) {
	if m == nil {
		return
	}
	m.walletLogins.WithLabelValues(string(variant), outcome).Inc()
}

func (m *Metrics) authRequest(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.authRequests.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) leadSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.leadsSubmitted.WithLabelValues(outcome).Inc()
}
