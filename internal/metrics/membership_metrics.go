package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mzhdanov/membership-service/pkg/logger"
)

// MembershipMetrics интерфейс для метрик платформы
type MembershipMetrics interface {
	IncRegistration(initialStatus string)
	IncReview(action, outcome string)
	IncLogin(outcome string)
	IncSubscription(action string)
	IncAccessCheck(granted bool)
	IncAuditDropped()
}

type membershipMetrics struct {
	log           *logger.Logger
	registrations *prometheus.CounterVec
	reviews       *prometheus.CounterVec
	logins        *prometheus.CounterVec
	subscriptions *prometheus.CounterVec
	accessChecks  *prometheus.CounterVec
	auditDropped  prometheus.Counter
}

// NewMembershipMetrics создает новые метрики платформы
func NewMembershipMetrics(registry *prometheus.Registry, log *logger.Logger) MembershipMetrics {
	registrations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "The total number of account registrations",
		},
		[]string{"initial_status"},
	)

	reviews := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_reviews_total",
			Help: "The total number of registration approvals and rejections",
		},
		[]string{"action", "outcome"},
	)

	logins := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "The total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	subscriptions := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_operations_total",
			Help: "The total number of subscription lifecycle operations",
		},
		[]string{"action"},
	)

	accessChecks := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_access_checks_total",
			Help: "The total number of content access checks",
		},
		[]string{"result"},
	)

	auditDropped := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "The total number of audit entries lost to sink failures",
		},
	)

	return &membershipMetrics{
		log:           log,
		registrations: registrations,
		reviews:       reviews,
		logins:        logins,
		subscriptions: subscriptions,
		accessChecks:  accessChecks,
		auditDropped:  auditDropped,
	}
}

// IncRegistration увеличивает счетчик регистраций
func (m *membershipMetrics) IncRegistration(initialStatus string) {
	m.registrations.WithLabelValues(initialStatus).Inc()
}

// IncReview увеличивает счетчик рассмотрений регистраций
func (m *membershipMetrics) IncReview(action, outcome string) {
	m.reviews.WithLabelValues(action, outcome).Inc()
}

// IncLogin увеличивает счетчик попыток входа
func (m *membershipMetrics) IncLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// IncSubscription увеличивает счетчик операций с подписками
func (m *membershipMetrics) IncSubscription(action string) {
	m.subscriptions.WithLabelValues(action).Inc()
}

// IncAccessCheck увеличивает счетчик проверок доступа
func (m *membershipMetrics) IncAccessCheck(granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.accessChecks.WithLabelValues(result).Inc()
}

// IncAuditDropped увеличивает счетчик потерянных записей аудита
func (m *membershipMetrics) IncAuditDropped() {
	m.auditDropped.Inc()
}
