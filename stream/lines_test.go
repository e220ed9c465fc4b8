package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/schemaguard/validator/engine"
)

const ndjsonInput = `{"name": "alice", "age": 30}

{"name": "bob", "age": -1}
{"name": "carol", "age": 45}
not json at all
`

func lineValidator() *LineValidator {
	eng := engine.New()
	return NewLineValidator(eng.Validate, "{name: string(1,50), age: int(0,150)}")
}

func TestValidateStream(t *testing.T) {
	v := lineValidator()
	results := v.ValidateStream(context.Background(), strings.NewReader(ndjsonInput))

	var collected []*LineResult
	for lr := range results {
		collected = append(collected, lr)
	}

	// Blank line 2 is skipped; line numbers are preserved.
	if len(collected) != 4 {
		t.Fatalf("got %d results; want 4", len(collected))
	}
	wantLines := []int{1, 3, 4, 5}
	for i, lr := range collected {
		if lr.Line != wantLines[i] {
			t.Errorf("result %d at line %d; want %d", i, lr.Line, wantLines[i])
		}
	}

	if collected[0].Result.HasErrors() {
		t.Errorf("line 1 should pass: %v", collected[0].Result.Issues)
	}
	if !collected[1].Result.HasErrors() {
		t.Error("line 3 has a negative age and should fail")
	}
	if collected[2].Result.HasErrors() {
		t.Error("line 4 should pass")
	}
	// A non-JSON line is validated as a raw string, which an object schema
	// rejects as a type mismatch.
	if !collected[3].Result.HasErrors() {
		t.Error("line 5 is not an object and should fail")
	}
}

func TestValidateStreamParallelPreservesOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(`{"name": "user", "age": 20}` + "\n")
	}

	v := lineValidator().WithWorkerCount(8)
	results := v.ValidateStreamParallel(context.Background(), strings.NewReader(b.String()))

	line := 0
	for lr := range results {
		line++
		if lr.Line != line {
			t.Fatalf("result at line %d arrived in position %d", lr.Line, line)
		}
		if lr.Result.HasErrors() {
			t.Errorf("line %d failed: %v", lr.Line, lr.Result.Issues)
		}
	}
	if line != 50 {
		t.Errorf("got %d results; want 50", line)
	}
}

func TestValidateStreamParallelLargeInput(t *testing.T) {
	// Far more lines than the pool's bounded channels can hold at once, on a
	// small worker count: the producer must never block on submission.
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString(`{"name": "user", "age": 20}` + "\n")
	}

	v := lineValidator().WithWorkerCount(2)
	results := v.ValidateStreamParallel(context.Background(), strings.NewReader(b.String()))

	count := 0
	for lr := range results {
		count++
		if lr.Line != count {
			t.Fatalf("line %d arrived in position %d", lr.Line, count)
		}
	}
	if count != 500 {
		t.Errorf("got %d results; want 500", count)
	}
}

func TestValidateStreamScalarSchema(t *testing.T) {
	eng := engine.New()
	v := NewLineValidator(eng.Validate, "email")

	input := "user@example.com\nnot-an-email\n"
	results := v.ValidateStream(context.Background(), strings.NewReader(input))

	first := <-results
	if first.Result.HasErrors() {
		t.Errorf("line 1 should pass: %v", first.Result.Issues)
	}
	second := <-results
	if !second.Result.HasErrors() {
		t.Error("line 2 should fail")
	}
}

func TestValidateStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := lineValidator().WithBufferSize(1)
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString(`{"name": "u", "age": 1}` + "\n")
	}

	results := v.ValidateStream(ctx, strings.NewReader(b.String()))

	count := 0
	for range results {
		count++
	}
	if count >= 100 {
		t.Error("canceled stream should stop early")
	}
}

func TestAggregate(t *testing.T) {
	v := lineValidator()
	summary := Aggregate(v.ValidateStream(context.Background(), strings.NewReader(ndjsonInput)))

	if summary.Total != 4 || summary.Passed != 2 || summary.Failed != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestValidateStreamEmpty(t *testing.T) {
	v := lineValidator()
	summary := Aggregate(v.ValidateStream(context.Background(), strings.NewReader("")))
	if summary.Total != 0 {
		t.Errorf("Total = %d for empty input", summary.Total)
	}
}
