package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"konnekt/internal/metrics"
	"konnekt/internal/model"
)

// Outbox stores ops that could not be applied so a worker can replay them.
type Outbox interface {
	Enqueue(ctx context.Context, op Op) error
}

// Source rebuilds the ops that bring the graph in line with the relational store
// for the entities op touches. Replays apply its result instead of the queued op,
// so a stale op cannot restore an edge that a later change removed.
type Source interface {
	Reconcile(ctx context.Context, op Op) ([]Op, error)
}

// SoftError reports a mirror write that failed after the authoritative commit.
// Callers surface it as a warning; the operation itself succeeded.
type SoftError struct {
	Op     Op
	Queued bool
	Err    error
}

func (e *SoftError) Error() string {
	if e.Queued {
		return fmt.Sprintf("graph mirror deferred: %s queued for replay: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("graph mirror out of sync: %s: %v", e.Op, e.Err)
}

func (e *SoftError) Unwrap() error { return e.Err }

// Dispatcher applies ops with a per-attempt timeout and bounded exponential retries.
type Dispatcher struct {
	writer     Writer
	outbox     Outbox
	timeout    time.Duration
	maxRetries int
	source     Source

	// newBackOff is replaced in tests to avoid sleeping.
	newBackOff func() backoff.BackOff
}

// NewDispatcher creates a Dispatcher. outbox may be nil, in which case failed ops are only logged.
func NewDispatcher(writer Writer, outbox Outbox, timeout time.Duration, maxRetries int) *Dispatcher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Dispatcher{
		writer:     writer,
		outbox:     outbox,
		timeout:    timeout,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
}

// WithSource makes Replay derive its writes from s. Without a source the queued op is applied as is.
func (d *Dispatcher) WithSource(s Source) *Dispatcher {
	d.source = s
	return d
}

// Apply writes op to the graph. It returns nil or a *SoftError, never a hard failure.
func (d *Dispatcher) Apply(ctx context.Context, op Op) error {
	startTime := time.Now()
	attempts := 0

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		if err := d.attempt(ctx, op); err != nil {
			if isPermanent(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			log.Printf("[Mirror] Apply attempt FAILED: op=%s attempt=%d err=%v", op, attempts, err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(d.newBackOff()), backoff.WithMaxTries(uint(d.maxRetries+1)))

	if err == nil {
		outcome := "ok"
		if attempts > 1 {
			outcome = "retried"
		}
		metrics.ObserveMirror(string(op.Kind), outcome, startTime)
		log.Printf("[Mirror] Apply OK: op=%s attempts=%d duration=%v", op, attempts, time.Since(startTime))
		return nil
	}

	soft := &SoftError{Op: op, Err: err}
	if isPermanent(err) || d.outbox == nil {
		metrics.ObserveMirror(string(op.Kind), "failed", startTime)
		log.Printf("[Mirror] Apply FAILED: op=%s attempts=%d err=%v", op, attempts, err)
		return soft
	}

	if qErr := d.outbox.Enqueue(ctx, op); qErr != nil {
		metrics.ObserveMirror(string(op.Kind), "failed", startTime)
		log.Printf("[Mirror] Apply FAILED: op=%s attempts=%d err=%v enqueue_err=%v", op, attempts, err, qErr)
		return soft
	}

	soft.Queued = true
	metrics.ObserveMirror(string(op.Kind), "queued", startTime)
	log.Printf("[Mirror] Apply DEFERRED: op=%s attempts=%d err=%v", op, attempts, err)
	return soft
}

// Replay makes a single attempt. The outbox consumer retries by leaving the message pending.
func (d *Dispatcher) Replay(ctx context.Context, op Op) error {
	startTime := time.Now()

	ops := []Op{op}
	if d.source != nil {
		current, err := d.source.Reconcile(ctx, op)
		if err != nil {
			metrics.ObserveMirror(string(op.Kind), "replay_failed", startTime)
			return fmt.Errorf("reconcile %s: %w", op, err)
		}
		ops = current
	}

	for _, o := range ops {
		if err := d.attempt(ctx, o); err != nil {
			metrics.ObserveMirror(string(op.Kind), "replay_failed", startTime)
			return err
		}
	}
	metrics.ObserveMirror(string(op.Kind), "replayed", startTime)
	if len(ops) != 1 || ops[0] != op {
		log.Printf("[Mirror] Replay reconciled: op=%s applied=%v", op, ops)
	}
	return nil
}

func (d *Dispatcher) attempt(ctx context.Context, op Op) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.writer.Apply(ctx, op)
}

// IsPermanent reports whether replaying op can never succeed.
func IsPermanent(err error) bool {
	return isPermanent(err)
}

func isPermanent(err error) bool {
	var typed *model.Error
	return errors.As(err, &typed)
}
