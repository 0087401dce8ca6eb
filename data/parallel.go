package data

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the fan-out used when a caller passes workers <= 0.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ForEach calls fn(i) for every i in [0, n) on at most workers goroutines and
// returns the first error. Each call must touch only its own slice of the
// output; nothing here synchronises writes.
func ForEach(n, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if n <= 1 || workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
