package sched

import "sync"

// Step is one unit of work in a re-entrant, multi-step pipeline job: it
// runs, then either returns done=true (the pipeline is finished) or
// done=false with the next Step to run.
type Step func() (next Step, done bool)

// WorkQueue is a single-queue actor with explicit serialization: at most
// one Step from this queue is ever running at a time, and each Step's
// continuation resubmits itself onto the shared Pool after the current
// one returns, instead of blocking a pool goroutine for the whole
// pipeline. This is spec.md §5's "re-entrant on a work-queue" job model.
type WorkQueue struct {
	pool *Pool
	mu   sync.Mutex
	busy bool
	pend []Step
}

// NewWorkQueue returns a WorkQueue that resubmits its steps onto pool.
func NewWorkQueue(pool *Pool) *WorkQueue { return &WorkQueue{pool: pool} }

// Enqueue schedules the first Step of a pipeline. If the queue is idle,
// the step runs immediately on the pool; if busy, it queues behind the
// step currently running.
func (q *WorkQueue) Enqueue(first Step) error {
	q.mu.Lock()
	if q.busy {
		q.pend = append(q.pend, first)
		q.mu.Unlock()
		return nil
	}
	q.busy = true
	q.mu.Unlock()
	return q.pool.Submit(func() { q.run(first) })
}

// run executes one Step and, depending on its outcome, either resubmits
// the continuation or advances to the next pending pipeline.
func (q *WorkQueue) run(s Step) {
	next, done := s()
	if !done {
		_ = q.pool.Submit(func() { q.run(next) })
		return
	}
	q.mu.Lock()
	if len(q.pend) > 0 {
		n := q.pend[0]
		q.pend = q.pend[1:]
		q.mu.Unlock()
		_ = q.pool.Submit(func() { q.run(n) })
		return
	}
	q.busy = false
	q.mu.Unlock()
}
