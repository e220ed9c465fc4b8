// Package stream validates line-delimited JSON (NDJSON) without loading the
// whole input into memory.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	sg "github.com/schemaguard/validator"
	"github.com/schemaguard/validator/worker"
)

// LineResult is the validation outcome for one input line.
type LineResult struct {
	// Line is the 1-based line number in the input.
	Line int

	// Result holds the validation outcome. Lines that fail to decode get a
	// result with a single invalid-format issue.
	Result *sg.Result
}

// maxLineBytes bounds a single input line. Lines past the cap are rejected
// rather than buffered.
const maxLineBytes = 1 << 20

// LineValidator validates each line of an NDJSON stream against one schema.
type LineValidator struct {
	validate    worker.ValidateFunc
	schema      string
	bufferSize  int
	workerCount int
}

// NewLineValidator creates a streaming validator that checks every input
// line against the given schema expression.
func NewLineValidator(validate worker.ValidateFunc, schema string) *LineValidator {
	return &LineValidator{
		validate:    validate,
		schema:      schema,
		bufferSize:  100,
		workerCount: 4,
	}
}

// WithBufferSize sets the result channel buffer size.
func (v *LineValidator) WithBufferSize(size int) *LineValidator {
	if size > 0 {
		v.bufferSize = size
	}
	return v
}

// WithWorkerCount sets the number of parallel workers used by
// ValidateStreamParallel.
func (v *LineValidator) WithWorkerCount(count int) *LineValidator {
	if count > 0 {
		v.workerCount = count
	}
	return v
}

// ValidateStream reads r line by line and emits one result per non-empty
// line, in input order. The channel closes when the input is exhausted or
// ctx is canceled.
func (v *LineValidator) ValidateStream(ctx context.Context, r io.Reader) <-chan *LineResult {
	results := make(chan *LineResult, v.bufferSize)

	go func() {
		defer close(results)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			lr := &LineResult{
				Line:   lineNo,
				Result: v.validateLine(ctx, line),
			}

			select {
			case <-ctx.Done():
				return
			case results <- lr:
			}
		}

		if err := scanner.Err(); err != nil {
			failed := sg.NewResult(nil)
			failed.AddIssue(sg.Fatal(sg.KindInvalidFormat).
				Messagef("read failed: %v", err).
				Build())
			select {
			case <-ctx.Done():
			case results <- &LineResult{Line: lineNo + 1, Result: failed}:
			}
		}
	}()

	return results
}

// ValidateStreamParallel validates lines on a worker pool while preserving
// input order in the emitted results.
func (v *LineValidator) ValidateStreamParallel(ctx context.Context, r io.Reader) <-chan *LineResult {
	results := make(chan *LineResult, v.bufferSize)

	go func() {
		defer close(results)

		pool := worker.NewPool(func(ctx context.Context, schema string, value any) *sg.Result {
			line, _ := value.(string)
			return v.validateLine(ctx, line)
		}, v.workerCount)

		// The pool's channels are bounded, so results must be consumed while
		// lines are still being submitted or the producer blocks. The
		// collector stops once it has one result per submitted line.
		total := make(chan int, 1)
		gathered := make(chan map[int]*sg.Result, 1)
		go func() {
			byIndex := make(map[int]*sg.Result)
			want := -1
			for want < 0 || len(byIndex) < want {
				select {
				case t := <-total:
					want = t
				case ir, ok := <-pool.Results():
					if !ok {
						want = len(byIndex)
						continue
					}
					byIndex[ir.Index] = ir.Result
				}
			}
			gathered <- byIndex
		}()

		lines := make([]int, 0, 64)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

		lineNo := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !pool.Submit(worker.Item{Schema: v.schema, Value: line}) {
				break
			}
			lines = append(lines, lineNo)
		}

		total <- len(lines)
		byIndex := <-gathered
		pool.Close()

		for i, line := range lines {
			result := byIndex[i]
			if result == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case results <- &LineResult{Line: line, Result: result}:
			}
		}
	}()

	return results
}

// validateLine decodes one line and validates the decoded value. A line that
// is not valid JSON is validated as a raw string, mirroring how single-value
// inputs behave elsewhere.
func (v *LineValidator) validateLine(ctx context.Context, line string) *sg.Result {
	var value any
	if err := json.Unmarshal([]byte(line), &value); err != nil {
		value = line
	}
	return v.validate(ctx, v.schema, value)
}

// StreamSummary aggregates a finished stream.
type StreamSummary struct {
	Total  int
	Passed int
	Failed int
}

// Aggregate drains a result channel into a summary.
func Aggregate(results <-chan *LineResult) StreamSummary {
	var s StreamSummary
	for lr := range results {
		s.Total++
		if lr.Result != nil && lr.Result.HasErrors() {
			s.Failed++
		} else {
			s.Passed++
		}
	}
	return s
}
