package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DonationMetrics counts fund-affecting outcomes. Nil receivers are no-ops.
type DonationMetrics struct {
	donationsCreated     prometheus.Counter
	donationsVerified    *prometheus.CounterVec
	verifiedAmount       prometheus.Counter
	webhookReceived      *prometheus.CounterVec
	webhookDuplicates    prometheus.Counter
	webhookConflicts     *prometheus.CounterVec
	signatureRejected    prometheus.Counter
	disbursementRejected *prometheus.CounterVec
}

var (
	donationMetricsOnce sync.Once
	donationMetrics     *DonationMetrics
)

func Donation() *DonationMetrics {
	return DonationWithConfig(Config{})
}

func DonationWithConfig(cfg Config) *DonationMetrics {
	donationMetricsOnce.Do(func() {
		donationMetrics = NewDonationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return donationMetrics
}

func ResetDonationMetricsForTest() {
	donationMetricsOnce = sync.Once{}
	donationMetrics = nil
}

// NewDonationMetrics registers the donation collectors on registerer.
func NewDonationMetrics(registerer prometheus.Registerer, cfg Config) *DonationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "donasi"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	donationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "donasi_donations_created_total",
		Help:        "Donations created in pending status.",
		ConstLabels: constLabels,
	})

	donationsVerified := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "donasi_donations_verified_total",
			Help:        "Donations moved to verified, by the path that verified them.",
			ConstLabels: constLabels,
		},
		[]string{"source"}, // webhook | admin
	)

	verifiedAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "donasi_donations_verified_amount_total",
		Help:        "Sum of verified donation amounts applied to causes.",
		ConstLabels: constLabels,
	})

	webhookReceived := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "donasi_payment_webhooks_total",
			Help:        "Payment gateway notifications by provider and mapped outcome.",
			ConstLabels: constLabels,
		},
		[]string{"provider", "outcome"},
	)

	webhookDuplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "donasi_payment_webhook_duplicates_total",
		Help:        "Notifications acknowledged without effect because the donation was already final.",
		ConstLabels: constLabels,
	})

	webhookConflicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "donasi_payment_webhook_conflicts_total",
			Help:        "Notifications contradicting a donation that is already final, needing manual reconciliation.",
			ConstLabels: constLabels,
		},
		[]string{"status", "outcome"},
	)

	signatureRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "donasi_payment_signature_rejected_total",
		Help:        "Notifications rejected for an invalid signature.",
		ConstLabels: constLabels,
	})

	disbursementRejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "donasi_disbursement_rejected_total",
			Help:        "Disbursement changes refused by the balance guard.",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)

	registerer.MustRegister(
		donationsCreated,
		donationsVerified,
		verifiedAmount,
		webhookReceived,
		webhookDuplicates,
		webhookConflicts,
		signatureRejected,
		disbursementRejected,
	)

	return &DonationMetrics{
		donationsCreated:     donationsCreated,
		donationsVerified:    donationsVerified,
		verifiedAmount:       verifiedAmount,
		webhookReceived:      webhookReceived,
		webhookDuplicates:    webhookDuplicates,
		webhookConflicts:     webhookConflicts,
		signatureRejected:    signatureRejected,
		disbursementRejected: disbursementRejected,
	}
}

func (m *DonationMetrics) DonationCreated() {
	if m == nil {
		return
	}
	m.donationsCreated.Inc()
}

func (m *DonationMetrics) DonationVerified(source string, amount int64) {
	if m == nil {
		return
	}
	m.donationsVerified.WithLabelValues(source).Inc()
	if amount > 0 {
		m.verifiedAmount.Add(float64(amount))
	}
}

func (m *DonationMetrics) WebhookReceived(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookReceived.WithLabelValues(provider, outcome).Inc()
}

func (m *DonationMetrics) WebhookDuplicate() {
	if m == nil {
		return
	}
	m.webhookDuplicates.Inc()
}

// WebhookConflict counts a notification whose outcome disagrees with the donation's final status.
func (m *DonationMetrics) WebhookConflict(status, outcome string) {
	if m == nil {
		return
	}
	m.webhookConflicts.WithLabelValues(status, outcome).Inc()
}

func (m *DonationMetrics) SignatureRejected() {
	if m == nil {
		return
	}
	m.signatureRejected.Inc()
}

func (m *DonationMetrics) DisbursementRejected(reason string) {
	if m == nil {
		return
	}
	m.disbursementRejected.WithLabelValues(reason).Inc()
}
