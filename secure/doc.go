// Package secure implements the security-hardened leaf validators: text,
// JSON, object, IP address, and email. The schema compiler wires them in for
// declared format types, and they are independently callable.
//
// Every validator returns a schemaguard.Result and never returns a Go error
// for bad data. Each runs its size guards before any pattern stage, so the
// worst-case synchronous work per call is bounded by input size limits rather
// than by pattern-matching timeouts.
package secure
