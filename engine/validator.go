// Package engine provides the top-level validation engine: schema
// compilation, result caching, metrics, timeouts, and batch orchestration
// behind one handle.
package engine

import (
	"context"
	"sync"
	"time"

	sg "github.com/schemaguard/validator"
	"github.com/schemaguard/validator/cache"
	"github.com/schemaguard/validator/schema"
	"github.com/schemaguard/validator/worker"
)

// Operation names recorded against the per-operation metrics. OpValidate is
// recorded only when a validation is actually computed; cache hits bypass it,
// so its count reflects underlying work rather than calls.
const (
	OpValidate = "validate"
	OpBatch    = "validate_batch"
)

// Engine coordinates schema validation. It is safe for concurrent use.
type Engine struct {
	options *sg.Options
	metrics *sg.Metrics
	results *cache.ResultCache
}

// New creates an Engine with the given options applied over the defaults.
func New(opts ...sg.Option) *Engine {
	options := sg.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	metrics := options.Metrics
	if metrics == nil {
		metrics = sg.NewMetrics()
	}

	e := &Engine{
		options: options,
		metrics: metrics,
	}
	if options.UseCache {
		e.results = cache.NewResultCache(options.CacheSize)
	}
	return e
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default returns a shared engine configured with the default options.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Validate compiles expr and validates value against it. The call is total:
// an unparseable schema, a panic, or a timeout all surface as issues on the
// result, never as a panic to the caller.
func (e *Engine) Validate(ctx context.Context, expr string, value any) *sg.Result {
	compiled, err := schema.CompileString(expr)
	if err != nil {
		start := time.Now()
		result := sg.NewResult(value)
		result.AddIssue(sg.Fatal(sg.KindUnknown).
			Messagef("schema: %v", err).
			Build())
		e.meter(result, time.Since(start))
		return result
	}
	return e.ValidateCompiled(ctx, compiled, value)
}

// ValidateCompiled validates value against an already compiled schema,
// consulting the result cache when enabled.
func (e *Engine) ValidateCompiled(ctx context.Context, compiled *schema.Compiled, value any) *sg.Result {
	start := time.Now()

	var key string
	cacheable := false
	if e.results != nil {
		key, cacheable = cache.Key(compiled.Signature(), e.options.StrictMode, value)
		if cacheable {
			if cached, ok := e.results.Get(key); ok {
				e.metrics.RecordCacheHit()
				e.metrics.RecordValidation(time.Since(start), cached.Valid)
				return cached
			}
			e.metrics.RecordCacheMiss()
		}
	}

	result := e.run(ctx, compiled, value)

	if cacheable {
		e.results.Put(key, result)
	}
	e.meter(result, time.Since(start))
	return result
}

// run executes one validation under the engine's timeout budget with panic
// containment.
func (e *Engine) run(ctx context.Context, compiled *schema.Compiled, value any) (result *sg.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = internalFailure(value, rec)
		}
	}()

	timeout := e.options.Timeout
	if timeout <= 0 && ctx.Done() == nil {
		return compiled.Validate(value, e.options)
	}

	done := make(chan *sg.Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- internalFailure(value, rec)
			}
		}()
		done <- compiled.Validate(value, e.options)
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-done:
		return r
	case <-expired:
		return timedOut(value, "validation exceeded timeout of "+timeout.String())
	case <-ctx.Done():
		return timedOut(value, "validation canceled: "+ctx.Err().Error())
	}
}

// ValidateBatch validates a slice of items, each against its own schema,
// using the engine's concurrency, timeout, and continue-on-error settings.
// Results are positionally aligned with the input.
func (e *Engine) ValidateBatch(ctx context.Context, items []worker.Item) *worker.BatchResult {
	batch := worker.RunBatch(ctx, items, worker.BatchOptions{
		Concurrency:     e.options.MaxConcurrency,
		ContinueOnError: e.options.ContinueOnError,
		Timeout:         e.options.Timeout,
	}, e.Validate)
	e.metrics.Record(OpBatch, batch.Summary.Elapsed, batch.Summary.Failed > 0)
	return batch
}

// Metrics returns the engine's metrics recorder.
func (e *Engine) Metrics() *sg.Metrics {
	return e.metrics
}

// Options returns the engine's effective options.
func (e *Engine) Options() *sg.Options {
	return e.options
}

// CacheStats reports result-cache counters. The zero value is returned when
// caching is disabled.
func (e *Engine) CacheStats() cache.Stats {
	if e.results == nil {
		return cache.Stats{}
	}
	return e.results.Stats()
}

// ClearCache drops all cached results.
func (e *Engine) ClearCache() {
	if e.results != nil {
		e.results.Clear()
	}
}

// meter records one computed validation. Cache hits never reach here, so the
// OpValidate count tracks actual computations.
func (e *Engine) meter(result *sg.Result, elapsed time.Duration) {
	e.metrics.RecordValidation(elapsed, result.Valid)
	e.metrics.Record(OpValidate, elapsed, !result.Valid)
	for _, issue := range result.Issues {
		e.metrics.RecordIssue(issue.Severity)
	}
}

func internalFailure(value any, rec any) *sg.Result {
	result := sg.NewResult(value)
	result.AddIssue(sg.Fatal(sg.KindUnknown).
		Messagef("internal failure: %v", rec).
		Build())
	return result
}

func timedOut(value any, msg string) *sg.Result {
	result := sg.NewResult(value)
	result.AddIssue(sg.Fatal(sg.KindTimeout).
		Message(msg).
		Build())
	return result
}
