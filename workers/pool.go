// Package workers shards an index range (grid rows, sweep angles) across a
// fixed number of goroutines.
package workers

import (
	"context"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

// span is a unit of work for the pool: indices [lo, hi).
type span struct {
	lo, hi int
}

// Pool runs index-parallel work on a fixed number of goroutines.
type Pool struct {
	workers int
	logger  *log.Entry
}

// NewPool creates a pool with the given number of workers. workers <= 0
// selects runtime.NumCPU().
func NewPool(workers int, logger *log.Entry) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Pool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls fn(i) for every i in [0, n) and returns once all calls have
// finished. fn must only touch state owned by index i. If ctx is cancelled
// the remaining indices are skipped and ctx.Err() is returned.
func (p *Pool) Run(ctx context.Context, n int, fn func(i int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
		}
		return nil
	}

	chunk := (n + workers*4 - 1) / (workers * 4)
	jobs := make(chan span, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				for i := job.lo; i < job.hi; i++ {
					fn(i)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for lo := 0; lo < n; lo += chunk {
			hi := lo + chunk
			if hi > n {
				hi = n
			}
			select {
			case jobs <- span{lo: lo, hi: hi}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	if err := ctx.Err(); err != nil {
		p.logger.WithError(err).WithField("items", n).Debug("parallel run cancelled")
		return err
	}
	return nil
}
