// Package concurrency implements a bounded fork-join parallel-for.
//
// Iterations handed to ParallelFor must be independent: no iteration may read
// a value written by another one. Sequential dependencies (e.g. the blind rotation
// accumulation loop) must not go through this package.
package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

var maxThreads atomic.Int64

func init() {
	maxThreads.Store(int64(runtime.GOMAXPROCS(0)))
}

// SetMaxThreads sets the maximum number of goroutines spawned by a single parallel loop.
// Values smaller than one are treated as one.
func SetMaxThreads(n int) {
	if n < 1 {
		n = 1
	}
	maxThreads.Store(int64(n))
}

// MaxThreads returns the maximum number of goroutines spawned by a single parallel loop.
func MaxThreads() int {
	return int(maxThreads.Load())
}

// ThreadLimit returns the number of workers to use for n independent units of work:
// min(n, MaxThreads()), and at least one.
func ThreadLimit[T constraints.Integer](n T) int {
	if n <= 1 {
		return 1
	}
	if m := MaxThreads(); int64(n) > int64(m) {
		return m
	}
	return int(n)
}

// ParallelFor calls f(i) for every i in [0, n) on at most ThreadLimit(n) goroutines
// and returns once all calls have returned.
func ParallelFor(n int, f func(i int)) {
	ParallelForWithState(n, func() struct{} { return struct{}{} }, func(_ struct{}, i int) { f(i) })
}

// ParallelForWithState is like ParallelFor, but each worker first builds a private
// state with newState, which is then passed to every call it makes. This is the way
// to give each worker its own scratch buffers (e.g. a shallow copy of an evaluator).
func ParallelForWithState[S any](n int, newState func() S, f func(state S, i int)) {

	if n <= 0 {
		return
	}

	workers := ThreadLimit(n)

	if workers == 1 {
		state := newState()
		for i := 0; i < n; i++ {
			f(state, i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			state := newState()
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return
				}
				f(state, i)
			}
		}()
	}

	wg.Wait()
}

// ParallelForErr is like ParallelFor, but f may fail. All iterations are run and
// the error of the smallest failing index is returned.
func ParallelForErr(n int, f func(i int) error) (err error) {

	if n <= 0 {
		return nil
	}

	errs := make([]error, n)

	ParallelFor(n, func(i int) {
		errs[i] = f(i)
	})

	for i := range errs {
		if errs[i] != nil {
			return errs[i]
		}
	}

	return nil
}
