// Package pool runs tasks in parallel with a fixed number of slots. Tasks submitted
// when all slots are busy wait and start in the order they were submitted. A pool is
// meant for one batch of work: submit everything, then Wait.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of work. The error it returns is recorded in its Result.
type Task func() error

// Result is the outcome of one task
type Result struct {
	Name string
	Err  error
}

// Pool admits at most 'capacity' tasks at a time
type Pool struct {
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	mu       sync.Mutex
	results  []Result
	inFlight int
	maxSeen  int
}

// New creates a pool with the passed capacity. A capacity less than one is treated
// as one.
func New(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(capacity))}
}

// Submit blocks until a slot is free and then starts the task in a goroutine. The
// semaphore serves waiters first-come first-served so queued tasks start in
// submission order.
func (p *Pool) Submit(name string, task Task) {
	p.mu.Lock()
	idx := len(p.results)
	p.results = append(p.results, Result{Name: name})
	p.mu.Unlock()

	// the background context can't be cancelled so Acquire can't fail
	_ = p.sem.Acquire(context.Background(), 1)
	p.enter()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.leave()
		err := task()
		p.mu.Lock()
		p.results[idx].Err = err
		p.mu.Unlock()
	}()
}

// Wait blocks until every submitted task has finished, whether or not any of them
// failed, and returns the results in submission order.
func (p *Pool) Wait() []Result {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	results := make([]Result, len(p.results))
	copy(results, p.results)
	return results
}

// MaxInFlight is the largest number of tasks that were running at the same time
func (p *Pool) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSeen
}

func (p *Pool) enter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
}

func (p *Pool) leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
}
