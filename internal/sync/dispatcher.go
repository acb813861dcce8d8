package sync

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Dispatcher serializes Sync invocations per owner. Two concurrent calls
// for the same owner would read the same dirty set and race on cursor
// advancement, so duplicates are coalesced: the second caller shares the
// in-flight pass's result instead of starting another. Calls for
// different owners proceed in parallel, untouched.
type Dispatcher struct {
	engine *Engine
	group  singleflight.Group
}

// NewDispatcher wraps an engine with per-owner single-flight dispatch.
func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Sync runs (or joins) the sync pass for the owner.
func (d *Dispatcher) Sync(ctx context.Context, ownerID string) (*Report, error) {
	v, err, _ := d.group.Do(ownerID, func() (any, error) {
		return d.engine.Sync(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Report), nil
}
