// Package worker runs validations concurrently.
//
// Two shapes are provided. RunBatch takes a preassembled slice of items and
// processes it in fixed windows, honoring continue-on-error and a shared
// timeout budget, returning results aligned with the input. Pool is a
// long-lived worker set for streaming workloads where items trickle in and
// results are consumed from a channel.
//
// Both are driven by a ValidateFunc so the package stays independent of the
// engine that supplies it.
package worker
