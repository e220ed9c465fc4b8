package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	sg "github.com/schemaguard/validator"
)

// Pool is a long-lived set of worker goroutines for streaming validation,
// where items arrive one at a time instead of as a preassembled batch.
// Results are emitted on a channel as items finish, not in submission order;
// ItemResult.Index recovers the ordering when callers need it.
type Pool struct {
	workers    int
	jobsChan   chan poolJob
	resultChan chan *ItemResult
	validate   ValidateFunc
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool
	started    time.Time

	submitted     atomic.Uint64
	completed     atomic.Uint64
	totalDuration atomic.Uint64
}

type poolJob struct {
	index int
	item  Item
}

// NewPool starts a pool with the given number of workers. If workers <= 0,
// it defaults to runtime.NumCPU().
func NewPool(validate ValidateFunc, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan poolJob, workers*2),
		resultChan: make(chan *ItemResult, workers*2),
		validate:   validate,
		ctx:        ctx,
		cancel:     cancel,
		started:    time.Now(),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit queues an item for validation, blocking while the queue is full.
// It returns false if the pool is closed.
func (p *Pool) Submit(item Item) bool {
	if p.closed.Load() {
		return false
	}

	// The counter advances even if the send loses to shutdown; the slot then
	// shows up as skipped in Drain.
	index := int(p.submitted.Add(1)) - 1
	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- poolJob{index: index, item: item}:
		return true
	}
}

// TrySubmit queues an item without blocking. It returns false if the queue
// is full or the pool is closed.
func (p *Pool) TrySubmit(item Item) bool {
	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- poolJob{index: int(p.submitted.Add(1)) - 1, item: item}:
		return true
	default:
		return false
	}
}

// Results returns the channel results are emitted on. The channel is closed
// once the pool is closed and all in-flight items have finished.
func (p *Pool) Results() <-chan *ItemResult {
	return p.resultChan
}

// Close stops accepting work, waits for in-flight items, and closes the
// results channel. Undelivered results are discarded.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}

	close(p.jobsChan)

	done := make(chan struct{})
	go func() {
		for range p.resultChan {
		}
		close(done)
	}()

	p.wg.Wait()
	p.cancel()
	close(p.resultChan)
	<-done
}

// Drain stops accepting work and collects every remaining result, aligned by
// submission index.
func (p *Pool) Drain() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}

	close(p.jobsChan)

	go func() {
		p.wg.Wait()
		p.cancel()
		close(p.resultChan)
	}()

	total := int(p.submitted.Load())
	results := make([]*sg.Result, total)
	for r := range p.resultChan {
		if r.Index >= 0 && r.Index < total {
			results[r.Index] = r.Result
		}
	}

	summary := Summary{Total: total}
	skipped := make([]bool, total)
	for i, r := range results {
		switch {
		case r == nil:
			skipped[i] = true
			summary.Skipped++
		case r.HasErrors():
			summary.Failed++
		default:
			summary.Passed++
		}
	}
	summary.Elapsed = time.Since(p.started)

	return &BatchResult{Results: results, Summary: summary, skipped: skipped}
}

// Stats reports pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:     p.workers,
		Submitted:   p.submitted.Load(),
		Completed:   p.completed.Load(),
		AvgDuration: p.averageDuration(),
	}
}

// PoolStats contains pool counters.
type PoolStats struct {
	Workers     int
	Submitted   uint64
	Completed   uint64
	AvgDuration time.Duration
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		result := p.validate(p.ctx, job.item.Schema, job.item.Value)
		elapsed := time.Since(start)

		p.completed.Add(1)
		p.totalDuration.Add(uint64(elapsed))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- &ItemResult{
			Index:   job.index,
			ID:      job.item.ID,
			Result:  result,
			Elapsed: elapsed,
		}:
		}
	}
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.completed.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}
