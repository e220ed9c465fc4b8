package worker

import (
	"context"
	"time"

	sg "github.com/schemaguard/validator"
)

// Item is one unit of batch work: a value paired with the schema expression
// it must satisfy.
type Item struct {
	// ID is an optional caller-supplied identifier echoed on the result.
	ID string

	// Schema is the type expression to validate against.
	Schema string

	// Value is the data to validate.
	Value any
}

// ItemResult pairs a finished validation with its position in the batch.
type ItemResult struct {
	// Index is the item's position in the submitted batch.
	Index int

	// ID echoes Item.ID.
	ID string

	// Result holds the validation outcome.
	Result *sg.Result

	// Elapsed is the wall time spent on this item.
	Elapsed time.Duration
}

// ValidateFunc validates one value against one schema expression. It must be
// total: failures surface as issues on the result.
type ValidateFunc func(ctx context.Context, schema string, value any) *sg.Result

// Summary aggregates a batch outcome.
type Summary struct {
	// Total is the number of items submitted.
	Total int

	// Passed counts items that validated cleanly.
	Passed int

	// Failed counts items whose validation produced errors.
	Failed int

	// Skipped counts items never validated because the batch stopped early.
	Skipped int

	// Elapsed is the wall time for the whole batch.
	Elapsed time.Duration
}

// BatchResult holds per-item results positionally aligned with the submitted
// items, plus the aggregate summary.
type BatchResult struct {
	Results []*sg.Result
	Summary Summary

	skipped []bool
}

// Skipped reports whether the item at index i was never validated, its
// result slot having been synthesized after the batch stopped or its budget
// expired. A skipped slot is not a validator failure.
func (b *BatchResult) Skipped(i int) bool {
	return i >= 0 && i < len(b.skipped) && b.skipped[i]
}
