package telerelay

import (
	"github.com/hyp3rd/ewrap"
)

// Common errors for the telerelay package.
var (
	// ErrBackpressure is returned by AcquireFillSlot when neither slot is
	// available to the producer. It is a flow-control signal, not a failure;
	// the producer decides whether to block, drop, or retry later.
	ErrBackpressure = ewrap.New("both buffer slots are occupied")

	// ErrSlotState is returned when a commit or release targets a slot that
	// is not in the state the operation expects.
	ErrSlotState = ewrap.New("slot is not in the expected state")

	// ErrSlotIndex is returned when a slot index is outside [0, 1].
	ErrSlotIndex = ewrap.New("slot index out of range")

	// ErrSlotSize is returned when a fill commit reports a byte count
	// outside (0, capacity].
	ErrSlotSize = ewrap.New("committed size out of range")

	// ErrRelayClosed is returned when operating on a relay after Close.
	ErrRelayClosed = ewrap.New("relay is closed")
)
