// Package service orchestrates the engine's operations across the relational
// store, the counter cache, the graph mirror and the notification sinks.
//
// Every mutating operation commits to Postgres first. The steps that follow
// (counters, mirror, notifications) run on a context detached from the caller and
// report failures as warnings on the result instead of failing the operation.
package service

import (
	"context"
	"log"
	"time"

	"konnekt/internal/cache"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
)

// MirrorApplier applies one op to the graph mirror. *mirror.Dispatcher satisfies it
// and never returns anything but nil or a *mirror.SoftError.
type MirrorApplier interface {
	Apply(ctx context.Context, op mirror.Op) error
}

// warnings collects soft failures of post-commit steps.
type warnings []string

func (w *warnings) add(err error) {
	if err != nil {
		*w = append(*w, err.Error())
	}
}

func (w warnings) list() []string {
	if len(w) == 0 {
		return nil
	}
	return w
}

// mirrorAll applies ops in order and records failures as warnings.
func mirrorAll(ctx context.Context, m MirrorApplier, w *warnings, ops ...mirror.Op) {
	for _, op := range ops {
		w.add(m.Apply(ctx, op))
	}
}

// adjust moves a counter after a commit. A failed recompute leaves the counter to
// the next read and is reported as a warning.
func adjust(ctx context.Context, counter cache.Counter, w *warnings, key string, delta int64, recompute cache.RecomputeFunc) int64 {
	n, err := counter.Adjust(ctx, key, delta, recompute)
	if err != nil {
		log.Printf("[Counter] Adjust FAILED: key=%s delta=%d err=%v", key, delta, err)
		w.add(err)
		return 0
	}
	return n
}

// formatCursor renders a pagination cursor. Nanosecond precision keeps rows created
// in the same second from being skipped.
func formatCursor(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// ParseCursor is the inverse of formatCursor. An empty string means the first page.
func ParseCursor(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, model.NewError(model.KindBadRequest, "invalid cursor")
	}
	return &t, nil
}

func normalizeLimit(limit int) int {
	_, limit = model.NormalizePage(1, limit)
	return limit
}

func requirePair(actorID, targetID int64) error {
	if !model.ValidID(actorID) || !model.ValidID(targetID) {
		return model.ErrInvalidID
	}
	if actorID == targetID {
		return model.ErrSelfTarget
	}
	return nil
}
