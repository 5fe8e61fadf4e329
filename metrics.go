package telerelay

// Metrics provides insight into the relay's activity since construction.
// Counters only ever increase; drivers diff snapshots to derive rates.
type Metrics struct {
	// Delivered counts slots sent straight from memory.
	Delivered uint64
	// Spilled counts slots persisted after a failed send.
	Spilled uint64
	// Flushed counts backlog records delivered and removed.
	Flushed uint64
	// RetryFailed counts backlog records that failed a retry attempt.
	RetryFailed uint64
	// Idle counts Process calls that found no work.
	Idle uint64
}

// Backlogged reports whether any spilled record has not yet been flushed.
// It is an approximation based on counters, not a store scan.
func (m Metrics) Backlogged() bool {
	return m.Spilled > m.Flushed
}
