// Package metrics exposes Prometheus instrumentation for the on-ramp flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Proton-105/onramp/internal/errors"
	"github.com/Proton-105/onramp/internal/flow"
	"github.com/Proton-105/onramp/internal/poller"
	"github.com/Proton-105/onramp/internal/session"
)

var (
	flowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_flow_transitions_total",
			Help: "Total number of flow state transitions",
		},
		[]string{"from", "to"},
	)
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_attempts_total",
			Help: "Total number of finished on-ramp attempts by outcome",
		},
		[]string{"outcome"},
	)
	attemptDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onramp_attempt_duration_seconds",
			Help:    "Time from submit to the end of an on-ramp attempt",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"outcome"},
	)
	initiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_session_initiations_total",
			Help: "Total number of session initiations by outcome",
		},
		[]string{"outcome"},
	)
	initiationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onramp_session_initiation_duration_seconds",
			Help:    "Duration of session initiations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	statusPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_status_polls_total",
			Help: "Total number of payment status poll results",
		},
		[]string{"result"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_errors_total",
			Help: "Total number of handled errors split by kind and severity",
		},
		[]string{"kind", "severity"},
	)
)

func init() {
	flow.RegisterTransitionRecorder(RecordFlowTransition)
	flow.RegisterAttemptRecorder(RecordAttempt)
	session.RegisterInitiationRecorder(RecordInitiation)
	poller.RegisterPollRecorder(RecordPoll)
	apperrors.RegisterErrorRecorder(RecordError)
}

// RecordFlowTransition tracks FSM transitions.
func RecordFlowTransition(from, to string) {
	flowTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordAttempt counts a finished attempt and its duration.
func RecordAttempt(outcome string, duration time.Duration) {
	outcome = orUnknown(outcome)

	attemptsTotal.WithLabelValues(outcome).Inc()
	attemptDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordInitiation counts a session initiation and its duration.
func RecordInitiation(outcome string, duration time.Duration) {
	outcome = orUnknown(outcome)

	initiationsTotal.WithLabelValues(outcome).Inc()
	initiationDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordPoll counts a single status poll result.
func RecordPoll(result string) {
	statusPollsTotal.WithLabelValues(orUnknown(result)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(kind, severity string) {
	errorsTotal.WithLabelValues(orUnknown(kind), orUnknown(severity)).Inc()
}

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}

	return label
}
