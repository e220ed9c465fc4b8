// Package schemaguard provides runtime schema validation driven by a compact
// string type DSL, with security-hardened primitive validators.
//
// Developers declare data shapes as strings ("string(3,20)?", "number[](1,10)",
// "active|inactive", "=literal", nested object literals) which compile into
// immutable, reusable validators. The engine checks arbitrary input against a
// compiled validator and returns a structured Result carrying ordered errors
// and warnings.
//
// # Quick Start
//
//	import (
//	    sg "github.com/schemaguard/validator"
//	    "github.com/schemaguard/validator/engine"
//	    "github.com/schemaguard/validator/schema"
//	)
//
//	compiled, err := schema.CompileString("{name: string(1,50), tags: string[]?}")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng := engine.New(sg.WithCache(true))
//	result := eng.Validate(ctx, compiled, input)
//	if result.HasErrors() {
//	    for _, issue := range result.Errors() {
//	        fmt.Println(issue.Message)
//	    }
//	}
//	result.Release() // Return to pool for better performance
//
// # Security Primitives
//
// The secure package exposes the leaf validators the engine wires in for
// format types, independently callable as well:
//
//   - Text: ordered pipeline with the size guard ahead of every pattern stage
//   - JSON: length-capped parsing, pollution guard, structural policy
//   - IP: CIDR handling and exact address-range policy predicates
//   - Email: RFC-shaped local-part/domain rules with normalization
//   - Object: key policies, pollution guard, depth-bounded walks
//
// Bad data never raises: every primitive returns a Result. Only schema
// construction (a malformed DSL string, an unknown dotted argument) returns
// a Go error, and it does so before any data is validated.
//
// # Functional Options
//
//	eng := engine.New(
//	    sg.WithCache(true),
//	    sg.WithTimeout(5*time.Second),
//	    sg.WithMaxConcurrency(8),
//	)
//
// # Architecture
//
//   - schema: DSL tokenizer/parser and compiler producing immutable validators
//   - engine: validation execution, timeout race, cache and metrics wiring
//   - secure: leaf security validators
//   - cache: generic LRU plus the canonical-key result cache
//   - worker: batch orchestration in bounded concurrency windows
package schemaguard
