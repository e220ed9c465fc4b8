package schemaguard

import (
	"regexp"
	"runtime"
	"time"
)

// Default limits shared by the primitive validators.
const (
	// DefaultMaxTextLength caps text input before any pattern work runs.
	DefaultMaxTextLength = 10000
	// DefaultMaxJSONLength caps raw JSON strings before parsing.
	DefaultMaxJSONLength = 100000
	// DefaultMaxEmailLength is the RFC overall address cap.
	DefaultMaxEmailLength = 254
	// DefaultMaxDepth bounds recursive structural walks.
	DefaultMaxDepth = 20
	// DefaultMaxKeys bounds cumulative key counts in object graphs.
	DefaultMaxKeys = 1000
)

// SchemaDelegate is an external structural-schema check invoked in strict
// or opt-in modes. It receives the parsed value and an opaque schema and
// returns findings in the shared Result shape. Its internals are out of
// scope for this package.
type SchemaDelegate func(value any, schema any) *Result

// TextOptions configures the text security validator.
type TextOptions struct {
	// MinLength is the minimum rune count after optional trimming.
	MinLength int
	// MaxLength is checked before any pattern stage runs. This is the
	// primary defense against oversized inputs causing unbounded work.
	MaxLength int
	// AllowEmpty permits the empty string.
	AllowEmpty bool
	// TrimWhitespace trims leading/trailing whitespace and records a warning.
	TrimWhitespace bool
	// NormalizeUnicode applies NFC normalization and records a warning.
	NormalizeUnicode bool
	// MaxLines bounds the number of lines (0 = unlimited).
	MaxLines int
	// ASCIIOnly rejects any non-ASCII rune.
	ASCIIOnly bool
	// AlphanumericOnly rejects anything outside [0-9A-Za-z].
	AlphanumericOnly bool
	// AllowedChars, when non-empty, is the exhaustive set of permitted runes.
	AllowedChars string
	// ForbiddenPatterns are compiled and matched after the size guard.
	ForbiddenPatterns []string
	// AllowHTML downgrades the XSS checks entirely.
	AllowHTML bool
	// PreventXSS enables script/URI-scheme injection checks (fatal).
	PreventXSS bool
	// PreventSQLInjection enables SQL pattern checks (warning only).
	PreventSQLInjection bool
	// PreventLDAPInjection enables LDAP filter metacharacter checks (fatal).
	PreventLDAPInjection bool
	// PreventCommandInjection enables shell metacharacter checks (fatal).
	PreventCommandInjection bool
}

// DefaultTextOptions returns the default text validator configuration.
func DefaultTextOptions() *TextOptions {
	return &TextOptions{
		MinLength:           0,
		MaxLength:           DefaultMaxTextLength,
		AllowEmpty:          true,
		PreventXSS:          true,
		PreventSQLInjection: true,

		// Opt-in checks, off by default
		PreventLDAPInjection:    false,
		PreventCommandInjection: false,
		NormalizeUnicode:        false,
		TrimWhitespace:          false,
	}
}

// JSONMode selects how aggressively the JSON validator inspects content.
type JSONMode string

const (
	// JSONModeBasic parses and checks structure only.
	JSONModeBasic JSONMode = "basic"
	// JSONModeSecure additionally runs the prototype-pollution guard.
	JSONModeSecure JSONMode = "secure"
	// JSONModeStrict additionally applies the singleton structural policy.
	JSONModeStrict JSONMode = "strict"
)

// JSONOptions configures the JSON security validator.
type JSONOptions struct {
	// MaxLength caps raw string input before parsing.
	MaxLength int
	// Mode selects basic, secure, or strict inspection.
	Mode JSONMode
	// MaxDepth bounds nesting during the deep structural walk.
	MaxDepth int
	// MaxKeys bounds the cumulative key count across the whole document.
	MaxKeys int
	// MaxStringLength bounds each string node.
	MaxStringLength int
	// MaxArrayLength bounds each array node.
	MaxArrayLength int
	// AllowedTypes, when non-empty, is the exhaustive set of permitted JSON
	// value kinds ("object", "array", "string", "number", "boolean", "null").
	AllowedTypes []string
	// ForbiddenTypes lists JSON value kinds that are rejected outright.
	ForbiddenTypes []string
	// ForbiddenKeys lists additional key names rejected anywhere in the
	// document, on top of the built-in pollution denylist.
	ForbiddenKeys []string
	// DetectCycles probes already-parsed structures for circular references.
	DetectCycles bool
}

// DefaultJSONOptions returns the default JSON validator configuration.
func DefaultJSONOptions() *JSONOptions {
	return &JSONOptions{
		MaxLength:       DefaultMaxJSONLength,
		Mode:            JSONModeSecure,
		MaxDepth:        DefaultMaxDepth,
		MaxKeys:         DefaultMaxKeys,
		MaxStringLength: DefaultMaxTextLength,
		MaxArrayLength:  1000,
		DetectCycles:    true,
	}
}

// IPVersion selects which IP address families are accepted.
type IPVersion string

const (
	// IPv4 accepts IPv4 literals only.
	IPv4 IPVersion = "v4"
	// IPv6 accepts IPv6 literals only.
	IPv6 IPVersion = "v6"
	// IPBoth accepts either family.
	IPBoth IPVersion = "both"
)

// IPOptions configures the IP address validator.
type IPOptions struct {
	// Version restricts the accepted address family.
	Version IPVersion
	// AllowPrivate permits RFC 1918 and link-local ranges.
	AllowPrivate bool
	// AllowLoopback permits 127.0.0.0/8 and ::1.
	AllowLoopback bool
	// AllowMulticast permits 224-239.x and ff00::/8.
	AllowMulticast bool
	// AllowDocumentation permits the TEST-NET and 2001:db8::/32 ranges.
	AllowDocumentation bool
	// AllowCIDR accepts an optional /prefix suffix.
	AllowCIDR bool
	// BlockBogons rejects 0.x and 240-255.x addresses.
	BlockBogons bool
	// Strict requires canonical literal syntax (no shorthand octets).
	Strict bool
}

// DefaultIPOptions returns the default IP validator configuration.
func DefaultIPOptions() *IPOptions {
	return &IPOptions{
		Version:            IPBoth,
		AllowPrivate:       true,
		AllowLoopback:      true,
		AllowMulticast:     false,
		AllowDocumentation: true,
		AllowCIDR:          false,
		BlockBogons:        false,
		Strict:             true,
	}
}

// EmailOptions configures the email address validator.
type EmailOptions struct {
	// MaxLength caps the overall address length.
	MaxLength int
	// Strict uses the tighter ASCII-only local-part character class and the
	// simple dot+alpha-TLD domain rule.
	Strict bool
	// AllowInternational permits non-ASCII domains.
	AllowInternational bool
	// AllowedDomains, when non-empty, is the exhaustive domain allow-list.
	AllowedDomains []string
	// BlockedDomains lists domains rejected outright.
	BlockedDomains []string
	// WarnDisposable emits a non-fatal warning for disposable-looking
	// addresses (test, temp, fake, spam, noreply).
	WarnDisposable bool
}

// DefaultEmailOptions returns the default email validator configuration.
func DefaultEmailOptions() *EmailOptions {
	return &EmailOptions{
		MaxLength:          DefaultMaxEmailLength,
		Strict:             true,
		AllowInternational: true,
		WarnDisposable:     true,
	}
}

// ObjectOptions configures the object security validator.
type ObjectOptions struct {
	// AllowNull permits a nil input.
	AllowNull bool
	// AllowArray permits slice input in place of a map.
	AllowArray bool
	// MaxDepth bounds the recursive structural walk.
	MaxDepth int
	// MaxKeys bounds the number of top-level properties.
	MaxKeys int
	// MaxPropertyNameLength bounds each property name.
	MaxPropertyNameLength int
	// PreventPrototypePollution runs the denylisted-key scan.
	PreventPrototypePollution bool
	// RequiredKeys must all be present.
	RequiredKeys []string
	// AllowedKeys, when non-empty, is the exhaustive key allow-list.
	// Violations are fatal only in Strict mode, otherwise warnings.
	AllowedKeys []string
	// ForbiddenKeys are rejected with a security violation.
	ForbiddenKeys []string
	// KeyPattern, when set, must match every property name.
	KeyPattern *regexp.Regexp
	// Strict promotes allow-list violations to errors.
	Strict bool
	// Delegate is an optional external structural-schema check.
	Delegate SchemaDelegate
	// DelegateSchema is the opaque schema handed to the delegate.
	DelegateSchema any
}

// DefaultObjectOptions returns the default object validator configuration.
func DefaultObjectOptions() *ObjectOptions {
	return &ObjectOptions{
		AllowNull:                 false,
		AllowArray:                false,
		MaxDepth:                  10,
		MaxKeys:                   DefaultMaxKeys,
		MaxPropertyNameLength:     100,
		PreventPrototypePollution: true,
	}
}

// Option configures the validation engine.
type Option func(*Options)

// Options holds all configuration for the engine.
type Options struct {
	// UseCache memoizes successful results by canonical key.
	UseCache bool
	// CacheSize bounds the result cache capacity.
	CacheSize int
	// Timeout bounds a single validation call (0 = none). Expiry produces a
	// Timeout error result; in-flight synchronous work is not interrupted.
	Timeout time.Duration
	// MaxConcurrency bounds each batch window.
	MaxConcurrency int
	// ContinueOnError keeps a batch running past a failed window.
	ContinueOnError bool
	// StrictMode tightens the primitive validators where they distinguish
	// strict behavior (object allow-lists, JSON structural policy).
	StrictMode bool
	// Metrics receives per-operation timing. Defaults to the shared instance.
	Metrics *Metrics
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() *Options {
	return &Options{
		UseCache:        false,
		CacheSize:       1000,
		Timeout:         0,
		MaxConcurrency:  runtime.NumCPU(),
		ContinueOnError: true,
		StrictMode:      false,
	}
}

// WithCache enables result memoization.
func WithCache(enable bool) Option {
	return func(o *Options) {
		o.UseCache = enable
	}
}

// WithCacheSize sets the result cache capacity.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.CacheSize = size
		}
	}
}

// WithTimeout sets the per-call timeout budget.
// Use 0 for no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithMaxConcurrency sets the batch window size.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxConcurrency = n
		}
	}
}

// WithContinueOnError controls whether batches keep running past a window
// that contained a failure.
func WithContinueOnError(enable bool) Option {
	return func(o *Options) {
		o.ContinueOnError = enable
	}
}

// WithStrictMode tightens the primitive validators.
func WithStrictMode(enable bool) Option {
	return func(o *Options) {
		o.StrictMode = enable
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// --- Presets ---

// FastOptions returns options optimized for throughput.
func FastOptions() []Option {
	return []Option{
		WithCache(true),
		WithCacheSize(5000),
		WithContinueOnError(true),
	}
}

// StrictOptions returns options for strict validation.
func StrictOptions() []Option {
	return []Option{
		WithStrictMode(true),
		WithContinueOnError(false),
	}
}

// DebugOptions returns options useful for debugging.
func DebugOptions() []Option {
	return []Option{
		WithCache(false),
		WithTimeout(30 * time.Second),
	}
}
