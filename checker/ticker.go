package checker

import (
	"context"

	"github.com/sharedcode/multipathd"
	"golang.org/x/sync/semaphore"
)

// Tick runs one round-robin pass of Check over paths, bounding how many
// run concurrently with a weighted semaphore. Grounded on the teacher's
// task_runner.go channel-based slot limiter (spec.md section 5's
// checker-tick thread driving synchronous checkers), with
// golang.org/x/sync/semaphore substituted for the hand-rolled channel.
func Tick(ctx context.Context, paths []*multipath.Path, instances map[*multipath.Path]*Instance, maxConcurrent int64) {
	sem := semaphore.NewWeighted(maxConcurrent)
	results := make(chan struct {
		path  *multipath.Path
		state multipath.PathState
	}, len(paths))

	for _, p := range paths {
		inst, ok := instances[p]
		if !ok {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(p *multipath.Path, inst *Instance) {
			defer sem.Release(1)
			state := inst.Check(ctx)
			if inst.NeedWait() {
				return
			}
			results <- struct {
				path  *multipath.Path
				state multipath.PathState
			}{p, state}
		}(p, inst)
	}

	// Drain results collected so far; the event loop holds the global
	// lock while applying them, per spec.md section 5's ordering
	// guarantee ("The checker-tick thread holds the lock while applying
	// results").
	sem.Acquire(ctx, maxConcurrent)
	close(results)
	for r := range results {
		r.path.State = r.state
	}
}
