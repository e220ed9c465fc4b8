package schemaguard

import (
	"fmt"
	"strings"
)

// Severity represents the severity of a validation issue.
type Severity string

const (
	// SeverityFatal indicates the issue is fatal and validation cannot continue.
	SeverityFatal Severity = "fatal"
	// SeverityError indicates a violation that makes the input invalid.
	SeverityError Severity = "error"
	// SeverityWarning indicates a potential problem that should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation Severity = "information"
)

// ErrorKind identifies the category of a validation issue.
// The set is closed: validators never emit codes outside this enumeration.
type ErrorKind string

const (
	// KindTypeMismatch indicates the value has the wrong runtime type or shape.
	KindTypeMismatch ErrorKind = "type-mismatch"
	// KindLengthViolation indicates a length, size, or range constraint failed.
	KindLengthViolation ErrorKind = "length-violation"
	// KindPatternMismatch indicates the value does not match a required pattern.
	KindPatternMismatch ErrorKind = "pattern-mismatch"
	// KindSecurityViolation indicates injection content, prototype pollution,
	// a disallowed IP range, or a forbidden key.
	KindSecurityViolation ErrorKind = "security-violation"
	// KindInvalidFormat indicates malformed JSON, IP, email, or URL input.
	KindInvalidFormat ErrorKind = "invalid-format"
	// KindTimeout indicates the validation exceeded its timeout budget.
	KindTimeout ErrorKind = "timeout"
	// KindUnknown wraps an unexpected internal failure.
	KindUnknown ErrorKind = "unknown"
)

// maxValueSnapshot bounds the number of characters of an offending value
// retained on an Issue, so huge payloads are never pinned by kept results.
const maxValueSnapshot = 128

// Issue represents a single validation finding.
type Issue struct {
	// Severity of the issue (fatal, error, warning, information)
	Severity Severity `json:"severity"`

	// Code identifying the category of issue
	Code ErrorKind `json:"code"`

	// Message contains human-readable details about the issue
	Message string `json:"message,omitempty"`

	// Path contains the key/index segments leading to the offending value
	Path []string `json:"path,omitempty"`

	// Value is a size-bounded snapshot of the offending value
	Value string `json:"value,omitempty"`
}

// IsError returns true if this is an error or fatal issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := ""
	if len(i.Path) > 0 {
		path = " at " + strings.Join(i.Path, ".")
	}
	return string(i.Severity) + ": " + i.Message + path
}

// Snapshot renders v as a string truncated to the snapshot cap.
func Snapshot(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if len(s) > maxValueSnapshot {
		return s[:maxValueSnapshot] + "..."
	}
	return s
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity Severity, code ErrorKind) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue builder.
func Error(code ErrorKind) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue builder.
func Warning(code ErrorKind) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Fatal creates a fatal issue builder.
func Fatal(code ErrorKind) *IssueBuilder {
	return NewIssue(SeverityFatal, code)
}

// Message sets the diagnostic message.
func (b *IssueBuilder) Message(msg string) *IssueBuilder {
	b.issue.Message = msg
	return b
}

// Messagef sets a formatted diagnostic message.
func (b *IssueBuilder) Messagef(format string, args ...any) *IssueBuilder {
	b.issue.Message = fmt.Sprintf(format, args...)
	return b
}

// At sets the path segments.
func (b *IssueBuilder) At(segments ...string) *IssueBuilder {
	b.issue.Path = segments
	return b
}

// Value sets a truncated snapshot of the offending value.
func (b *IssueBuilder) Value(v any) *IssueBuilder {
	b.issue.Value = Snapshot(v)
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
