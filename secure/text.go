package secure

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	sg "github.com/schemaguard/validator"
)

// xssPatterns match script injection content. Compiled once; every input
// reaching these has already passed the max-length guard.
var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)<\s*iframe`),
	regexp.MustCompile(`(?i)<\s*(img|svg|body|embed|object)[^>]*\son\w+\s*=`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*["']`),
	regexp.MustCompile(`(?i)expression\s*\(`),
}

// dangerousSchemes are URI scheme substrings matched case-insensitively.
var dangerousSchemes = []string{
	"javascript:",
	"vbscript:",
	"data:text/html",
	"livescript:",
}

// sqlPatterns match SQL injection shapes. Matches are warnings, not errors:
// legitimate prose can trip them.
var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|select\s+[\w*,\s]+\s+from|insert\s+into|drop\s+(table|database)|delete\s+from|update\s+\w+\s+set)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+['"]?\d+['"]?\s*=\s*['"]?\d+`),
	regexp.MustCompile(`(--|;\s*--|/\*|\*/|;\s*(drop|delete|update|insert)\b)`),
}

// ldapPattern matches LDAP filter metacharacters.
var ldapPattern = regexp.MustCompile(`[()&|!*\\]|\x00`)

// commandPattern matches shell metacharacters and substitution forms.
var commandPattern = regexp.MustCompile("[;&|<>`]|\\$\\(|\\${")

// forbiddenPatternCache memoizes user-supplied forbidden patterns so
// repeated validations do not recompile them.
var forbiddenPatternCache sync.Map // map[string]*regexp.Regexp

func compileForbidden(pattern string) *regexp.Regexp {
	if v, ok := forbiddenPatternCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	actual, _ := forbiddenPatternCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}

// ValidateText runs the ordered text validation pipeline.
//
// Stage order is fixed and significant: the max-length check runs before any
// pattern work so a single oversized input cannot cause unbounded synchronous
// matching. Stages either short-circuit (type, max-length, empty) or
// accumulate findings and continue.
func ValidateText(value any, opts *sg.TextOptions) *sg.Result {
	if opts == nil {
		opts = sg.DefaultTextOptions()
	}

	result := sg.NewResult(value)

	// Type check
	s, ok := value.(string)
	if !ok {
		result.AddIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value).Build())
		return result
	}

	// Max-length guard. Runs before everything else; on violation this is
	// the only finding the call reports.
	if opts.MaxLength > 0 && utf8.RuneCountInString(s) > opts.MaxLength {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("length %d exceeds maximum %d", utf8.RuneCountInString(s), opts.MaxLength).
			Value(s).Build())
		return result
	}

	// Trim
	if opts.TrimWhitespace {
		trimmed := strings.TrimSpace(s)
		if trimmed != s {
			s = trimmed
			result.AddWarning(sg.KindInvalidFormat, "leading/trailing whitespace trimmed")
		}
	}

	// Unicode NFC normalization
	if opts.NormalizeUnicode {
		normalized := norm.NFC.String(s)
		if normalized != s {
			s = normalized
			result.AddWarning(sg.KindInvalidFormat, "input normalized to Unicode NFC form")
		}
	}

	result.Data = s

	// Empty check
	if s == "" {
		if !opts.AllowEmpty {
			result.AddError(sg.KindLengthViolation, "empty string not allowed")
		}
		return result
	}

	// Min length
	if opts.MinLength > 0 && utf8.RuneCountInString(s) < opts.MinLength {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("length %d below minimum %d", utf8.RuneCountInString(s), opts.MinLength).
			Value(s).Build())
	}

	// Max line count
	if opts.MaxLines > 0 {
		if lines := strings.Count(s, "\n") + 1; lines > opts.MaxLines {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("%d lines exceeds maximum %d", lines, opts.MaxLines).Build())
		}
	}

	// ASCII encoding
	if opts.ASCIIOnly {
		for _, r := range s {
			if r > unicode.MaxASCII {
				result.AddIssue(sg.Error(sg.KindInvalidFormat).
					Messagef("non-ASCII character %q not allowed", r).Build())
				break
			}
		}
	}

	// Alphanumeric only
	if opts.AlphanumericOnly {
		for _, r := range s {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				result.AddIssue(sg.Error(sg.KindPatternMismatch).
					Messagef("non-alphanumeric character %q not allowed", r).Build())
				break
			}
		}
	}

	// Allowed character set
	if opts.AllowedChars != "" {
		for _, r := range s {
			if !strings.ContainsRune(opts.AllowedChars, r) {
				result.AddIssue(sg.Error(sg.KindPatternMismatch).
					Messagef("character %q outside allowed set", r).Build())
				break
			}
		}
	}

	// Forbidden pattern list
	for _, pattern := range opts.ForbiddenPatterns {
		if re := compileForbidden(pattern); re != nil && re.MatchString(s) {
			result.AddIssue(sg.Error(sg.KindPatternMismatch).
				Messagef("input matches forbidden pattern %q", pattern).
				Value(s).Build())
		}
	}

	lower := strings.ToLower(s)

	// XSS patterns and dangerous URI schemes. Fatal unless HTML is
	// explicitly allowed.
	if opts.PreventXSS && !opts.AllowHTML {
		for _, re := range xssPatterns {
			if re.MatchString(s) {
				result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
					Message("potential XSS content detected").
					Value(s).Build())
				break
			}
		}
		for _, scheme := range dangerousSchemes {
			if strings.Contains(lower, scheme) {
				result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
					Messagef("dangerous URI scheme %q detected", scheme).
					Value(s).Build())
			}
		}
	}

	// SQL patterns: warning only
	if opts.PreventSQLInjection {
		for _, re := range sqlPatterns {
			if re.MatchString(s) {
				result.AddWarning(sg.KindSecurityViolation, "input resembles a SQL injection pattern")
				break
			}
		}
	}

	// LDAP injection: fatal, opt-in
	if opts.PreventLDAPInjection && ldapPattern.MatchString(s) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Message("LDAP filter metacharacters detected").
			Value(s).Build())
	}

	// Command injection: fatal, opt-in
	if opts.PreventCommandInjection && commandPattern.MatchString(s) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Message("shell metacharacters detected").
			Value(s).Build())
	}

	// Control characters: warning
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			result.AddWarning(sg.KindInvalidFormat, "control characters present")
			break
		}
	}

	// Null byte: fatal
	if strings.ContainsRune(s, 0) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Message("null byte detected").Build())
	}

	return result
}
