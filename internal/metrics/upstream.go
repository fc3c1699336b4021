package metrics

import "time"

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// AuthAPICall records a finished backend auth API call.
func AuthAPICall(op string, ok bool, duration time.Duration) {
	AuthAPICallsTotal.WithLabelValues(op, outcome(ok)).Inc()
	AuthAPICallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// IDPCall records a finished identity provider call.
func IDPCall(op string, ok bool) {
	IDPCallsTotal.WithLabelValues(op, outcome(ok)).Inc()
}

// ResetTransition records a reset step submission. Outcome is one of the
// Outcome constants.
func ResetTransition(step, outcome string) {
	ResetTransitionsTotal.WithLabelValues(step, outcome).Inc()
}

// SessionsSwept records expired reset sessions removed by the sweeper.
func SessionsSwept(n int64) {
	if n > 0 {
		ResetSessionsSwept.Add(float64(n))
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
