package secure

import (
	"regexp"
	"strings"
	"unicode"

	sg "github.com/schemaguard/validator"
)

// RFC-derived length caps for email addresses.
const (
	maxEmailLocalLength  = 64
	maxEmailDomainLength = 255
)

var (
	// strictLocalPattern is the tighter ASCII-only local-part class.
	strictLocalPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+$`)

	// permissiveLocalPattern is the broader RFC-shaped class.
	permissiveLocalPattern = regexp.MustCompile("^[A-Za-z0-9.!#$%&'*+/=?^_`{|}~\\-]+$")

	// strictTLDPattern requires an alphabetic TLD of at least two letters.
	strictTLDPattern = regexp.MustCompile(`\.[A-Za-z]{2,}$`)

	// domainLabelPattern is the full per-label syntax used in non-strict mode.
	domainLabelPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9\-]{0,61}[A-Za-z0-9])?$`)
)

// disposableHints flag addresses that look like throwaway accounts.
// Matching is a heuristic and produces a warning only.
var disposableHints = []string{"test", "temp", "fake", "spam", "noreply"}

// ValidateEmail validates an email address. The address is trimmed and
// lower-cased first; when that changes the input, the normalized form is
// returned in Data with an explanatory warning.
func ValidateEmail(value any, opts *sg.EmailOptions) *sg.Result {
	if opts == nil {
		opts = sg.DefaultEmailOptions()
	}

	result := sg.NewResult(value)

	s, ok := value.(string)
	if !ok {
		result.AddIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value).Build())
		return result
	}

	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized != s {
		result.AddWarning(sg.KindInvalidFormat, "address trimmed and lower-cased")
	}
	result.Data = normalized

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = sg.DefaultMaxEmailLength
	}
	if len(normalized) > maxLen {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("address length %d exceeds maximum %d", len(normalized), maxLen).Build())
		return result
	}

	if strings.Count(normalized, "@") != 1 {
		result.AddIssue(sg.Error(sg.KindInvalidFormat).
			Message("address must contain exactly one @").
			Value(normalized).Build())
		return result
	}

	at := strings.IndexByte(normalized, '@')
	local, domain := normalized[:at], normalized[at+1:]

	if local == "" || domain == "" {
		result.AddIssue(sg.Error(sg.KindInvalidFormat).
			Message("empty local part or domain").Build())
		return result
	}

	if len(local) > maxEmailLocalLength {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("local part length %d exceeds maximum %d", len(local), maxEmailLocalLength).Build())
	}
	if len(domain) > maxEmailDomainLength {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("domain length %d exceeds maximum %d", len(domain), maxEmailDomainLength).Build())
	}

	// Local-part character class.
	localPattern := permissiveLocalPattern
	if opts.Strict {
		localPattern = strictLocalPattern
	}
	if isASCII(local) && !localPattern.MatchString(local) {
		result.AddIssue(sg.Error(sg.KindPatternMismatch).
			Message("local part contains invalid characters").
			Value(local).Build())
	}

	// The character classes above permit '+', yet plus addressing is
	// rejected unconditionally. Both behaviors are preserved as found;
	// the rejection wins in practice.
	if strings.Contains(local, "+") {
		result.AddIssue(sg.Error(sg.KindPatternMismatch).
			Message("plus addressing not permitted").
			Value(local).Build())
	}

	// Dot placement in both parts.
	for _, part := range []struct{ name, value string }{{"local part", local}, {"domain", domain}} {
		if strings.Contains(part.value, "..") {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("%s contains consecutive dots", part.name).Build())
		}
		if strings.HasPrefix(part.value, ".") || strings.HasSuffix(part.value, ".") {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("%s begins or ends with a dot", part.name).Build())
		}
	}

	// Domain shape.
	if !strings.Contains(domain, ".") {
		result.AddIssue(sg.Error(sg.KindInvalidFormat).
			Message("domain must contain a dot").
			Value(domain).Build())
	} else if opts.Strict {
		if !strictTLDPattern.MatchString(domain) {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Message("domain must end with an alphabetic TLD of at least two letters").
				Value(domain).Build())
		}
	} else if isASCII(domain) {
		for _, label := range strings.Split(domain, ".") {
			if !domainLabelPattern.MatchString(label) {
				result.AddIssue(sg.Error(sg.KindInvalidFormat).
					Messagef("invalid domain label %q", label).Build())
			}
		}
	}

	if !opts.AllowInternational && !isASCII(domain) {
		result.AddIssue(sg.Error(sg.KindInvalidFormat).
			Message("internationalized domain not allowed").
			Value(domain).Build())
	}

	// Domain allow/block lists.
	if len(opts.AllowedDomains) > 0 && !containsFold(opts.AllowedDomains, domain) {
		result.AddIssue(sg.Error(sg.KindSecurityViolation).
			Messagef("domain %q not in allowed list", domain).Build())
	}
	if containsFold(opts.BlockedDomains, domain) {
		result.AddIssue(sg.Error(sg.KindSecurityViolation).
			Messagef("domain %q is blocked", domain).Build())
	}

	// Disposable-address heuristic: warning only.
	if opts.WarnDisposable {
		for _, hint := range disposableHints {
			if strings.Contains(local, hint) || strings.Contains(domain, hint) {
				result.AddWarning(sg.KindInvalidFormat, "address looks disposable ("+hint+")")
				break
			}
		}
	}

	return result
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
