package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vinylkeeper",
		Subsystem: "auth",
		Name:      "attempts_total",
		Help:      "Authentication operations by operation and outcome.",
	}, []string{"op", "outcome"})

	BestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vinylkeeper",
		Subsystem: "auth",
		Name:      "best_effort_failures_total",
		Help:      "Side effects that failed without failing the request.",
	}, []string{"effect"})

	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vinylkeeper",
		Subsystem: "notify",
		Name:      "delivered_total",
		Help:      "Notification deliveries by outcome.",
	}, []string{"outcome"})

	OwnershipDenials = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vinylkeeper",
		Subsystem: "collections",
		Name:      "ownership_denials_total",
		Help:      "Mutations rejected because the caller does not own the collection.",
	})
)

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
