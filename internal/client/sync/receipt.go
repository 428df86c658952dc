package sync

import "context"

// Outcome is how a save finally resolved remotely.
type Outcome int

const (
	// OutcomeLocalOnly: no remote write was attempted
	OutcomeLocalOnly Outcome = iota
	// OutcomeSynced: the remote store committed the write
	OutcomeSynced
	// OutcomeQueued: the remote write failed or was skipped offline; it waits in the queue
	OutcomeQueued
	// OutcomeSuperseded: a newer save of the same key replaced this one
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLocalOnly:
		return "local-only"
	case OutcomeSynced:
		return "synced"
	case OutcomeQueued:
		return "queued"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Receipt resolves once the remote part of a save is settled.
type Receipt struct {
	done    chan struct{}
	cause   error
	outcome Outcome
}

func newReceipt() *Receipt {
	return &Receipt{done: make(chan struct{})}
}

func resolvedReceipt(outcome Outcome, cause error) *Receipt {
	r := newReceipt()
	r.resolve(outcome, cause)
	return r
}

func (r *Receipt) resolve(outcome Outcome, cause error) {
	r.outcome = outcome
	r.cause = cause
	close(r.done)
}

// Done is closed when the outcome is known.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the outcome is known or ctx ends.
func (r *Receipt) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return OutcomeLocalOnly, ctx.Err()
	}
}

// Cause returns the remote error that queued the write, if any. Valid after Done.
func (r *Receipt) Cause() error {
	select {
	case <-r.done:
		return r.cause
	default:
		return nil
	}
}
