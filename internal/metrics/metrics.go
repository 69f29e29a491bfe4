// Package metrics регистрирует счётчики Prometheus для журнала баллов и членства.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — набор счётчиков сервиса.
type Metrics struct {
	PointsEarned     prometheus.Counter
	PointsRejected   *prometheus.CounterVec
	MembershipGrants *prometheus.CounterVec
	OrdersCreated    prometheus.Counter
	OrdersSettled    prometheus.Counter
	CardsExchanged   prometheus.Counter
	Referrals        *prometheus.CounterVec
	UpstreamErrors   *prometheus.CounterVec
}

// New регистрирует счётчики в reg. Для prometheus.DefaultRegisterer они
// попадают в /metrics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PointsEarned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "points_earned_total",
			Help:      "Sum of points credited to users.",
		}),
		PointsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "points_rejected_total",
			Help:      "Earn attempts rejected by the daily gate.",
		}, []string{"reason"}),
		MembershipGrants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "membership_grants_total",
			Help:      "Membership grants by member type.",
		}, []string{"member_type"}),
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "orders_created_total",
			Help:      "Unpaid orders created.",
		}),
		OrdersSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "orders_settled_total",
			Help:      "Orders settled by payment notification.",
		}),
		CardsExchanged: f.NewCounter(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "cards_exchanged_total",
			Help:      "Activation cards redeemed.",
		}),
		Referrals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "referrals_total",
			Help:      "Invite redemptions by result.",
		}, []string{"result"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hanzi",
			Name:      "upstream_errors_total",
			Help:      "Failed calls to external services.",
		}, []string{"service"}),
	}
}

// Nop возвращает счётчики на отдельном реестре. Используется в тестах.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
