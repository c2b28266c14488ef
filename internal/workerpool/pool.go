// Package workerpool runs a fixed set of goroutines, each popping a job from
// a queue.Queue, running a pure processing function, and pushing the result
// onto a result queue.Queue. It is the Go translation of the source
// viewer's Threadpool<Job, Result, Processor>, generalized over Job/Result
// with Go generics instead of the original's template processor type.
package workerpool

import (
	"runtime"
	"sync"

	"github.com/halvardh/streamview/internal/queue"
)

// Process runs in a worker goroutine and must be pure with respect to pool
// state: no shared state may be read or written other than through job/
// result values. A panic inside Process is not recovered — callers that
// talk to an unreliable decoder should catch failures themselves and return
// a result value signalling failure instead (see internal/decode).
type Process[Job, Result any] func(job Job) Result

// Pool owns a job queue, a result queue, and N worker goroutines draining
// the former into the latter via Process.
type Pool[Job, Result any] struct {
	Jobs    *queue.Queue[Job]
	Results *queue.Queue[Result]

	process Process[Job, Result]
	wg      sync.WaitGroup
}

// New constructs a pool with freshly created job/result queues and starts
// workerCount worker goroutines immediately. If workerCount <= 0, the count
// is derived from DefaultWorkerCount().
func New[Job, Result any](workerCount int, process Process[Job, Result]) *Pool[Job, Result] {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount()
	}

	p := &Pool[Job, Result]{
		Jobs:    queue.New[Job](),
		Results: queue.New[Result](),
		process: process,
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.loop()
	}

	return p
}

func (p *Pool[Job, Result]) loop() {
	defer p.wg.Done()
	for {
		job, err := p.Jobs.PopOrStop()
		if err != nil {
			return // Stopped
		}
		res := p.process(job)
		p.Results.Push(res)
	}
}

// Close stops accepting new work and blocks until every worker goroutine has
// returned. Results already pushed before Close remain in the result queue
// and are the caller's responsibility to drain or discard; the result queue
// itself is never stopped.
func (p *Pool[Job, Result]) Close() {
	p.Jobs.Stop()
	p.wg.Wait()
}

// DefaultWorkerCount derives a worker count from the number of logical CPUs,
// matching the source viewer's init_thread_pool heuristic: reserve a few
// cores for the render thread and OS so the decode pool doesn't starve
// interactive framerate, floored at 2 workers.
func DefaultWorkerCount() int {
	cpus := runtime.NumCPU()

	var reserve int
	switch {
	case cpus == 12:
		reserve = 4
	case cpus == 4:
		reserve = 1
	default:
		reserve = 1
	}

	n := cpus - reserve
	if n < 2 {
		n = 2
	}
	return n
}
