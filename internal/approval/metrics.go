package approval

import (
	"errors"
	"time"

	"fin_flow/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finflow",
		Name:      "transitions_total",
		Help:      "State transitions attempted, by entity, event and outcome.",
	}, []string{"entity", "event", "outcome"})

	transitionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "finflow",
		Name:      "transition_duration_seconds",
		Help:      "Time spent inside the storage transaction of a state transition.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity", "event"})
)

func observe(entity domain.Entity, event domain.Event, start time.Time, err error) {
	transitionSeconds.WithLabelValues(string(entity), string(event)).Observe(time.Since(start).Seconds())
	transitionsTotal.WithLabelValues(string(entity), string(event), outcome(err)).Inc()
}

// outcome maps an error onto a low-cardinality label
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
