package worker

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	sg "github.com/schemaguard/validator"
)

// BatchOptions controls batch scheduling.
type BatchOptions struct {
	// Concurrency is the window size: at most this many items run at once,
	// and a window completes fully before the next one starts. Defaults to
	// runtime.NumCPU().
	Concurrency int

	// ContinueOnError keeps scheduling windows after an item fails. When
	// false, the window containing the first failure still completes, then
	// remaining items are skipped.
	ContinueOnError bool

	// Timeout is a shared budget for the whole batch. Items not started
	// before it expires receive a synthesized timeout result.
	Timeout time.Duration
}

// RunBatch validates items in fixed windows of opts.Concurrency, calling
// validate for each. The returned results are positionally aligned with
// items; every slot is populated, skipped or timed-out slots included.
func RunBatch(ctx context.Context, items []Item, opts BatchOptions, validate ValidateFunc) *BatchResult {
	start := time.Now()

	window := opts.Concurrency
	if window <= 0 {
		window = runtime.NumCPU()
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make([]*sg.Result, len(items))
	stopped := false
	budgetExhausted := false

	for base := 0; base < len(items) && !stopped; base += window {
		if ctx.Err() != nil {
			budgetExhausted = true
			break
		}

		end := base + window
		if end > len(items) {
			end = len(items)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := base; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = validate(gctx, items[i].Schema, items[i].Value)
				return nil
			})
		}
		// validate is total, so Wait never reports an error; it only marks
		// the window boundary.
		_ = g.Wait()

		if ctx.Err() != nil {
			budgetExhausted = true
			break
		}
		if !opts.ContinueOnError {
			for i := base; i < end; i++ {
				if results[i] != nil && results[i].HasErrors() {
					stopped = true
					break
				}
			}
		}
	}

	summary := Summary{Total: len(items)}
	skipped := make([]bool, len(items))
	for i, r := range results {
		if r == nil {
			results[i] = unprocessed(items[i].Value, budgetExhausted)
			skipped[i] = true
			summary.Skipped++
			continue
		}
		if r.HasErrors() {
			summary.Failed++
		} else {
			summary.Passed++
		}
	}
	summary.Elapsed = time.Since(start)

	return &BatchResult{Results: results, Summary: summary, skipped: skipped}
}

// unprocessed synthesizes a result for an item the batch never ran.
func unprocessed(value any, timedOut bool) *sg.Result {
	result := sg.NewResult(value)
	if timedOut {
		result.AddIssue(sg.Fatal(sg.KindTimeout).
			Message("not validated: batch timeout budget exhausted").
			Build())
	} else {
		result.AddIssue(sg.Fatal(sg.KindUnknown).
			Message("not validated: batch stopped after earlier failure").
			Build())
	}
	return result
}
