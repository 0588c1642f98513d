package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"callconsole/internal/logging"
)

type loadFunc func(ctx context.Context, callID string, epoch uint64) error

// Reconciler triggers the first load of every slice of every registered
// call. A slice is claimed only when it is not loaded, not loading and has
// no error, so each load starts once and a failed load stays failed until
// its error is cleared.
type Reconciler struct {
	registry *Registry
	loaders  map[Slice]loadFunc
	logger   logging.Logger
	group    errgroup.Group
}

func newReconciler(registry *Registry, loaders map[Slice]loadFunc, concurrency int, logger logging.Logger) *Reconciler {
	r := &Reconciler{registry: registry, loaders: loaders, logger: logger}
	if concurrency > 0 {
		r.group.SetLimit(concurrency)
	}
	return r
}

// Run passes over the registry on start and after every change until ctx
// ends, then waits for in-flight loads.
func (r *Reconciler) Run(ctx context.Context) error {
	changes, unsubscribe := r.registry.Subscribe()
	defer unsubscribe()
	r.Pass(ctx)
	for {
		select {
		case <-ctx.Done():
			r.Wait()
			return nil
		case <-changes:
			r.Pass(ctx)
		}
	}
}

// Pass claims and starts every pending load and returns how many it
// started. It blocks while the concurrency limit is reached; a claimed
// slice reads as loading while it waits for a free slot.
func (r *Reconciler) Pass(ctx context.Context) int {
	started := 0
	for _, callID := range r.registry.IDs() {
		for _, slice := range allSlices {
			load, ok := r.loaders[slice]
			if !ok {
				continue
			}
			epoch, claimed := r.registry.claim(callID, slice)
			if !claimed {
				continue
			}
			started++
			r.logger.Debug("load_started", logging.Call(callID), logging.F("slice", slice.String()))
			r.group.Go(func() error {
				if err := load(ctx, callID, epoch); err != nil {
					r.logger.Warn("load_failed", logging.Call(callID), logging.F("slice", slice.String()), logging.Err(err))
				}
				return nil
			})
		}
	}
	return started
}

func (r *Reconciler) Wait() {
	_ = r.group.Wait()
}
