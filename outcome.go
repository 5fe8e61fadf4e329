package telerelay

// Outcome reports what a single Process call accomplished. It is only
// meaningful when the accompanying error is nil; a non-nil error means the
// relay hit a fatal condition and the driver should stop calling Process.
type Outcome uint8

const (
	// OutcomeIdle means no full slot and no backlog record was available.
	OutcomeIdle Outcome = iota
	// OutcomeDelivered means a full in-memory slot was sent to the collector.
	OutcomeDelivered
	// OutcomeSpilled means a send failed and the slot's bytes were persisted
	// to the fallback store for a later retry.
	OutcomeSpilled
	// OutcomeFlushed means a previously spilled record was sent and removed
	// from the fallback store.
	OutcomeFlushed
	// OutcomeRetryFailed means the oldest spilled record could not be sent;
	// it stays in the store and will be retried first on a later call.
	OutcomeRetryFailed
)

// String returns the string representation of an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeSpilled:
		return "spilled"
	case OutcomeFlushed:
		return "flushed"
	case OutcomeRetryFailed:
		return "retry-failed"
	default:
		return "unknown"
	}
}

// NetworkDegraded reports whether the outcome indicates the collector is
// currently unreachable. Drivers typically back off before the next Process
// call when this is true.
func (o Outcome) NetworkDegraded() bool {
	return o == OutcomeSpilled || o == OutcomeRetryFailed
}
