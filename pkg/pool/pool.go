// Package pool provides a fixed-size worker pool with two submission
// styles, mirroring the thread_pool/parfor/asyncmap trio this pipeline's
// original implementation used: a barrier group that submits many tasks
// and waits for all of them, and an async map that submits many tasks and
// lets the caller drain results in completion order.
package pool

import "sync"

// Pool is a fixed-size goroutine worker pool. A single Pool may back any
// number of Barrier and AsyncMap instances concurrently; tasks from all
// of them share the same worker slots.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// New starts a pool with size worker goroutines. size is not validated
// here — callers (internal/cliconfig) are responsible for bounding it
// to a sane range before construction.
func New(size int) *Pool {
	p := &Pool{tasks: make(chan func())}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Close stops accepting new tasks and blocks until every worker has
// drained the queue and exited. It does not discard pending tasks.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// Barrier submits a fixed batch of tasks to a Pool and blocks until all
// of them complete. It tracks in-flight work with a mutex-guarded counter
// and a condition variable rather than a bare channel close, because a
// single Barrier may be reused across many smaller batches over its
// lifetime.
type Barrier struct {
	pool      *Pool
	mu        sync.Mutex
	cond      *sync.Cond
	inflight  int
}

// NewBarrier creates a Barrier backed by pool.
func NewBarrier(pool *Pool) *Barrier {
	b := &Barrier{pool: pool}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Submit enqueues fn to run on the pool. Safe to call concurrently with
// other Submit calls on the same Barrier.
func (b *Barrier) Submit(fn func()) {
	b.mu.Lock()
	b.inflight++
	b.mu.Unlock()

	b.pool.tasks <- func() {
		defer func() {
			recover() // a panicking task still must decrement inflight
			b.mu.Lock()
			b.inflight--
			if b.inflight == 0 {
				b.cond.Broadcast()
			}
			b.mu.Unlock()
		}()
		fn()
	}
}

// Wait blocks until every task submitted so far has completed.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.inflight > 0 {
		b.cond.Wait()
	}
}

// AsyncMap submits thunks returning a T and lets the caller drain results
// in completion order rather than submission order.
type AsyncMap[T any] struct {
	pool     *Pool
	mu       sync.Mutex
	cond     *sync.Cond
	inflight int
	results  []T
}

// NewAsyncMap creates an AsyncMap backed by pool.
func NewAsyncMap[T any](pool *Pool) *AsyncMap[T] {
	m := &AsyncMap[T]{pool: pool}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Submit enqueues fn to run on the pool; its return value becomes
// available to a future Get call once it completes. A panicking fn is
// recovered and contributes no result (inflight is still decremented so
// Get/Empty remain accurate) — callers that need to observe a task
// failure should have fn recover internally and encode failure in T.
func (m *AsyncMap[T]) Submit(fn func() T) {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()

	m.pool.tasks <- func() {
		var result T
		var ok bool
		func() {
			defer func() {
				if recover() != nil {
					ok = false
				}
			}()
			result = fn()
			ok = true
		}()

		m.mu.Lock()
		m.inflight--
		if ok {
			m.results = append(m.results, result)
		}
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// Get blocks until a result is available and returns it. It returns
// false only if there is no result now and none will ever arrive (no
// tasks in flight and none buffered).
func (m *AsyncMap[T]) Get() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.results) == 0 && m.inflight > 0 {
		m.cond.Wait()
	}
	if len(m.results) == 0 {
		var zero T
		return zero, false
	}
	r := m.results[0]
	m.results = m.results[1:]
	return r, true
}

// Empty reports whether there is no work in flight and no buffered
// result waiting to be collected.
func (m *AsyncMap[T]) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight == 0 && len(m.results) == 0
}
