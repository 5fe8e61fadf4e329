package telerelay

import (
	"sync"

	"github.com/hyp3rd/ewrap"
)

// DefaultSlotCapacity is the default size in bytes of each buffer slot.
const DefaultSlotCapacity = 100 * 1024

// slotState tracks which role, if any, currently owns a slot's byte region.
// Making the claim explicit keeps "producer and relay both believe they own
// the slot" unrepresentable instead of merely avoided by convention.
type slotState uint8

const (
	// slotEmpty means the slot is available to the producer.
	slotEmpty slotState = iota
	// slotFilling means the producer has claimed the slot and may be
	// writing its bytes outside the lock.
	slotFilling
	// slotFull means the producer committed the slot and it is waiting
	// for the relay.
	slotFull
	// slotDraining means the relay has claimed the slot and may be
	// reading its bytes outside the lock.
	slotDraining
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotFilling:
		return "filling"
	case slotFull:
		return "full"
	case slotDraining:
		return "draining"
	default:
		return "unknown"
	}
}

type slot struct {
	state slotState
	size  int
	data  []byte
}

// DoubleBuffer coordinates two fixed-capacity byte slots between a producer
// that fills them and a relay that drains them. The mutex guards only the
// slot state transitions; the byte regions are read and written outside the
// lock, which is safe because a slot's state grants exclusive access to
// exactly one role at a time. Worst-case lock hold time is therefore O(1)
// regardless of slot capacity.
//
// Typical producer sequence:
//
//	idx, region, err := buf.AcquireFillSlot()
//	if err != nil {
//		// ErrBackpressure: both slots busy, caller picks a policy
//	}
//	n := copy(region, readings)
//	err = buf.CommitFill(idx, n)
//
// The relay side mirrors it with AcquireDrainSlot and CommitDrain.
type DoubleBuffer struct {
	mu       sync.Mutex
	capacity int
	slots    [2]slot
}

// NewDoubleBuffer creates a DoubleBuffer whose slots each hold capacity
// bytes. Both slots start empty.
func NewDoubleBuffer(capacity int) (*DoubleBuffer, error) {
	if capacity <= 0 {
		return nil, ewrap.New("slot capacity must be positive").
			WithMetadata("capacity", capacity)
	}

	buf := &DoubleBuffer{capacity: capacity}
	for i := range buf.slots {
		buf.slots[i].data = make([]byte, capacity)
	}

	return buf, nil
}

// Capacity returns the byte capacity of each slot.
func (b *DoubleBuffer) Capacity() int {
	return b.capacity
}

// AcquireFillSlot claims an empty slot for the producer and returns its
// index together with the full-capacity byte region to write into. The
// region may be written without further synchronization until CommitFill.
// Returns ErrBackpressure when neither slot is empty; the call never
// blocks, so any waiting policy belongs to the caller.
func (b *DoubleBuffer) AcquireFillSlot() (int, []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		if b.slots[i].state == slotEmpty {
			b.slots[i].state = slotFilling

			return i, b.slots[i].data, nil
		}
	}

	return 0, nil, ErrBackpressure
}

// CommitFill publishes a filled slot to the relay. All byte writes into the
// region returned by AcquireFillSlot must be complete before this call; the
// lock is taken only for the state flip, which is what keeps the relay from
// ever observing a half-written region.
func (b *DoubleBuffer) CommitFill(idx, written int) error {
	if idx < 0 || idx >= len(b.slots) {
		return ewrap.Wrap(ErrSlotIndex, "committing fill").
			WithMetadata("index", idx)
	}

	if written <= 0 || written > b.capacity {
		return ewrap.Wrap(ErrSlotSize, "committing fill").
			WithMetadata("written", written).
			WithMetadata("capacity", b.capacity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[idx].state != slotFilling {
		return ewrap.Wrap(ErrSlotState, "committing fill").
			WithMetadata("index", idx).
			WithMetadata("state", b.slots[idx].state.String())
	}

	b.slots[idx].size = written
	b.slots[idx].state = slotFull

	return nil
}

// AcquireDrainSlot claims a full slot for the relay and returns its index
// and the committed bytes. The returned slice aliases the slot's region and
// stays valid until CommitDrain or AbandonDrain. Slots are scanned lowest
// index first so the drain order is deterministic when both are full; the
// drained slot returns to the producer before the other is touched, so
// neither slot can starve. The second return is false when no slot is full,
// which is the normal "nothing to do" state rather than an error.
func (b *DoubleBuffer) AcquireDrainSlot() (int, []byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		if b.slots[i].state == slotFull {
			b.slots[i].state = slotDraining

			return i, b.slots[i].data[:b.slots[i].size], true
		}
	}

	return 0, nil, false
}

// CommitDrain resets a drained slot and makes it available to the producer
// again. The relay must be done with the bytes returned by AcquireDrainSlot
// before this call.
func (b *DoubleBuffer) CommitDrain(idx int) error {
	if idx < 0 || idx >= len(b.slots) {
		return ewrap.Wrap(ErrSlotIndex, "committing drain").
			WithMetadata("index", idx)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[idx].state != slotDraining {
		return ewrap.Wrap(ErrSlotState, "committing drain").
			WithMetadata("index", idx).
			WithMetadata("state", b.slots[idx].state.String())
	}

	b.slots[idx].size = 0
	b.slots[idx].state = slotEmpty

	return nil
}

// AbandonDrain returns a claimed slot to the full state with its bytes
// intact. The relay uses it when a drain attempt could neither deliver nor
// spill the data, so the slot must stay eligible for a later attempt.
func (b *DoubleBuffer) AbandonDrain(idx int) error {
	if idx < 0 || idx >= len(b.slots) {
		return ewrap.Wrap(ErrSlotIndex, "abandoning drain").
			WithMetadata("index", idx)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[idx].state != slotDraining {
		return ewrap.Wrap(ErrSlotState, "abandoning drain").
			WithMetadata("index", idx).
			WithMetadata("state", b.slots[idx].state.String())
	}

	b.slots[idx].state = slotFull

	return nil
}
