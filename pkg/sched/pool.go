// Package sched implements the instance's job-scheduling model: a bounded
// pool of worker goroutines popping one-shot jobs (run-to-completion), and
// a WorkQueue abstraction for jobs that reschedule themselves with
// explicit per-queue serialization (multi-step pipelines), per spec.md §5.
package sched

import (
	"github.com/panjf2000/ants/v2"

	"github.com/arraydb/arraydb/pkg/dberr"
)

// Pool is a bounded goroutine pool executing one-shot jobs: submit and
// forget, run-to-completion.
type Pool struct {
	p *ants.Pool
}

// NewPool returns a Pool with the given worker capacity. A panic inside a
// submitted job re-panics on the pool's goroutine rather than being
// swallowed, matching the reference corpus's own choice for jobs whose
// failure should be fatal to the process rather than silently dropped.
func NewPool(size int) (*Pool, error) {
	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) { panic(v) }))
	if err != nil {
		return nil, dberr.Newf(dberr.Internal, "sched", "create pool: %v", err)
	}
	return &Pool{p: p}, nil
}

// Submit enqueues a one-shot job. It blocks briefly if the pool is at
// capacity and no worker is free; ants itself manages the wait.
func (p *Pool) Submit(job func()) error {
	if err := p.p.Submit(job); err != nil {
		return dberr.Newf(dberr.TooManyQueries, "sched", "submit job: %v", err)
	}
	return nil
}

// Release tears down the pool, waiting for in-flight jobs to finish.
func (p *Pool) Release() { p.p.Release() }

// Running reports the number of jobs currently executing.
func (p *Pool) Running() int { return p.p.Running() }
