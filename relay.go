// Package telerelay moves telemetry produced by an embedded device to a
// collector on the local network, spilling to durable local storage
// whenever the network is unavailable.
//
// Two actors cooperate through a DoubleBuffer: a producer fills one of two
// fixed-capacity slots while the relay drains the other. The buffer's mutex
// guards only slot state transitions, never the byte copies, so the
// producer is never stalled behind network or disk I/O.
//
// The Relay itself is deliberately loop-free: Process performs exactly one
// unit of work per call and returns an Outcome, leaving scheduling,
// backoff, and shutdown to the driver:
//
//	relay, err := telerelay.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer relay.Close()
//
//	for ctx.Err() == nil {
//		outcome, err := relay.Process(ctx)
//		if err != nil {
//			return err // fatal: fallback store unusable
//		}
//
//		if outcome == telerelay.OutcomeIdle || outcome.NetworkDegraded() {
//			time.Sleep(pollInterval)
//		}
//	}
//
// A full in-memory slot is always preferred over the backlog so fresh data
// keeps flowing while the network is healthy; spilled records are replayed
// strictly oldest first to preserve the time-series order of the readings.
// Data committed to a slot is never dropped: every drained payload is
// either delivered or sitting in the fallback store when Process returns.
package telerelay

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/hyp3rd/ewrap"
	"github.com/hyp3rd/hyperlogger"

	"github.com/edgewire/telerelay/internal/httpsender"
	"github.com/edgewire/telerelay/internal/spool"
)

// Relay drains the shared double buffer and ships payloads to the
// collector, falling back to the durable store on send failure. It holds no
// goroutine and no loop of its own; the driver invokes Process repeatedly
// and owns the retry cadence.
//
// Process must not be called from more than one goroutine at a time. Close
// may be called concurrently with Process; in-flight work finishes first.
type Relay struct {
	buf    *DoubleBuffer
	sender Sender
	store  Store
	log    hyperlogger.Logger

	verbose    bool
	closeMutex sync.Mutex
	closed     bool

	delivered   atomic.Uint64
	spilled     atomic.Uint64
	flushed     atomic.Uint64
	retryFailed atomic.Uint64
	idle        atomic.Uint64
}

// New creates a Relay from the given configuration. When cfg.Sender is nil
// an HTTP multipart sender is built from cfg.ServerURL; when cfg.Store is
// nil a file spool is opened at cfg.SpoolDir, creating the directory if
// needed. A construction failure leaves nothing to clean up.
func New(cfg Config) (*Relay, error) {
	err := cfg.normalize()
	if err != nil {
		return nil, ewrap.Wrap(err, "invalid relay configuration")
	}

	sender := cfg.Sender
	if sender == nil {
		httpSender, err := httpsender.New(httpsender.Config{
			ServerURL: cfg.ServerURL,
			Client:    &http.Client{Timeout: cfg.SendTimeout},
		})
		if err != nil {
			return nil, ewrap.Wrap(err, "building HTTP sender")
		}

		sender = httpSender
	}

	store := cfg.Store
	if store == nil {
		fileSpool, err := spool.Open(cfg.SpoolDir)
		if err != nil {
			return nil, ewrap.Wrap(err, "opening fallback spool")
		}

		store = fileSpool
	}

	return &Relay{
		buf:     cfg.Buffer,
		sender:  sender,
		store:   store,
		log:     cfg.Logger,
		verbose: cfg.Verbose,
	}, nil
}

// Process performs one unit of relay work and returns what it accomplished.
//
// A full in-memory slot takes priority: its bytes are sent, and on send
// failure they are appended to the fallback store before the slot is
// released either way. With no full slot, the oldest spilled record is
// retried; it is deleted only after a successful send. With neither,
// Process returns OutcomeIdle.
//
// The returned error is nil for send failures (the data is durable and the
// driver should keep looping, typically with backoff) and non-nil only for
// fatal conditions: a closed relay, or a fallback store that cannot be
// written or read. On a fatal error the Outcome is not meaningful and the
// driver must stop calling Process and tear the relay down.
func (r *Relay) Process(ctx context.Context) (Outcome, error) {
	r.closeMutex.Lock()
	closed := r.closed
	r.closeMutex.Unlock()

	if closed {
		return OutcomeIdle, ErrRelayClosed
	}

	idx, data, ok := r.buf.AcquireDrainSlot()
	if ok {
		return r.drainSlot(ctx, idx, data)
	}

	return r.drainBacklog(ctx)
}

// Metrics returns a snapshot of the relay's counters.
func (r *Relay) Metrics() Metrics {
	return Metrics{
		Delivered:   r.delivered.Load(),
		Spilled:     r.spilled.Load(),
		Flushed:     r.flushed.Load(),
		RetryFailed: r.retryFailed.Load(),
		Idle:        r.idle.Load(),
	}
}

// Close releases the relay's resources, closing the fallback store. It is
// idempotent; after the first call every Process returns ErrRelayClosed.
// The shared double buffer is left untouched for the producer.
func (r *Relay) Close() error {
	r.closeMutex.Lock()
	defer r.closeMutex.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	err := r.store.Close()
	if err != nil {
		return ewrap.Wrap(err, "closing fallback store")
	}

	return nil
}

// drainSlot attempts to deliver a claimed slot, spilling to the fallback
// store when the collector is unreachable. The slot is released whenever
// its bytes have reached somewhere durable; it is returned to the full
// state only if both the send and the spill failed.
func (r *Relay) drainSlot(ctx context.Context, idx int, data []byte) (Outcome, error) {
	sendErr := r.sender.Send(ctx, data)
	if sendErr == nil {
		err := r.buf.CommitDrain(idx)
		if err != nil {
			return OutcomeIdle, ewrap.Wrap(err, "releasing delivered slot")
		}

		r.delivered.Add(1)

		if r.verbose {
			r.log.WithFields(
				hyperlogger.Field{Key: "slot", Value: idx},
				hyperlogger.Field{Key: "bytes", Value: len(data)},
			).Debug("slot delivered to collector")
		}

		return OutcomeDelivered, nil
	}

	r.log.WithError(sendErr).WithField("slot", idx).
		Warn("send failed, spilling slot to fallback store")

	id, appendErr := r.store.Append(ctx, data)
	if appendErr != nil {
		// Neither delivered nor durable: keep the slot full so the data
		// survives for a later attempt, and escalate.
		abandonErr := r.buf.AbandonDrain(idx)
		if abandonErr != nil {
			return OutcomeIdle, ewrap.Wrap(abandonErr, "returning slot after failed spill")
		}

		return OutcomeIdle, ewrap.Wrap(appendErr, "spilling slot to fallback store")
	}

	err := r.buf.CommitDrain(idx)
	if err != nil {
		return OutcomeIdle, ewrap.Wrap(err, "releasing spilled slot")
	}

	r.spilled.Add(1)

	if r.verbose {
		r.log.WithFields(
			hyperlogger.Field{Key: "slot", Value: idx},
			hyperlogger.Field{Key: "record", Value: id},
		).Debug("slot spilled for retry")
	}

	return OutcomeSpilled, nil
}

// drainBacklog retries the oldest spilled record, deleting it only after
// the collector has accepted it. Failed retries leave the record in place
// so the backlog is replayed strictly in write order.
func (r *Relay) drainBacklog(ctx context.Context) (Outcome, error) {
	id, data, ok, err := r.store.OldestPending(ctx)
	if err != nil {
		return OutcomeIdle, ewrap.Wrap(err, "reading fallback backlog")
	}

	if !ok {
		r.idle.Add(1)

		return OutcomeIdle, nil
	}

	sendErr := r.sender.Send(ctx, data)
	if sendErr != nil {
		r.retryFailed.Add(1)

		if r.verbose {
			r.log.WithError(sendErr).WithField("record", id).
				Debug("backlog retry failed, record kept")
		}

		return OutcomeRetryFailed, nil
	}

	err = r.store.Delete(ctx, id)
	if err != nil {
		// The record was delivered but cannot be removed; retrying would
		// resend it, so treat the store as broken.
		return OutcomeIdle, ewrap.Wrap(err, "deleting flushed record").
			WithMetadata("record", id)
	}

	r.flushed.Add(1)

	if r.verbose {
		r.log.WithFields(
			hyperlogger.Field{Key: "record", Value: id},
			hyperlogger.Field{Key: "bytes", Value: len(data)},
		).Debug("backlog record flushed")
	}

	return OutcomeFlushed, nil
}
