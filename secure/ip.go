package secure

import (
	"net/netip"
	"strconv"
	"strings"

	sg "github.com/schemaguard/validator"
)

// Address range tables. Matching any range whose policy flag disallows it
// produces an independent fatal error.
var (
	privateRanges = []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("169.254.0.0/16"), // link-local
		netip.MustParsePrefix("fc00::/7"),       // unique-local
		netip.MustParsePrefix("fe80::/10"),      // IPv6 link-local
	}

	loopbackRanges = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	multicastRanges = []netip.Prefix{
		netip.MustParsePrefix("224.0.0.0/4"), // 224-239.x
		netip.MustParsePrefix("ff00::/8"),
	}

	documentationRanges = []netip.Prefix{
		netip.MustParsePrefix("192.0.2.0/24"),
		netip.MustParsePrefix("198.51.100.0/24"),
		netip.MustParsePrefix("203.0.113.0/24"),
		netip.MustParsePrefix("2001:db8::/32"),
	}

	bogonRanges = []netip.Prefix{
		netip.MustParsePrefix("0.0.0.0/8"),
		netip.MustParsePrefix("240.0.0.0/4"), // 240-255.x
	}
)

func inAnyRange(addr netip.Addr, ranges []netip.Prefix) bool {
	for _, p := range ranges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateIP validates an IPv4 or IPv6 literal, optionally carrying a CIDR
// suffix, and applies the configured range policy. Every disallowed-range
// match is reported as an independent fatal error.
func ValidateIP(value any, opts *sg.IPOptions) *sg.Result {
	if opts == nil {
		opts = sg.DefaultIPOptions()
	}

	result := sg.NewResult(value)

	s, ok := value.(string)
	if !ok {
		result.AddIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value).Build())
		return result
	}

	// Strip an optional CIDR suffix before parsing the literal. Its bounds
	// are family-specific, so they are checked once the address has parsed.
	literal := s
	cidrBits := -1
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		if !opts.AllowCIDR {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Message("CIDR notation not allowed").
				Value(s).Build())
			return result
		}
		literal = s[:idx]
		suffix := s[idx+1:]
		bits, err := strconv.Atoi(suffix)
		if err != nil || bits < 0 {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("invalid CIDR prefix length %q", suffix).Build())
			return result
		}
		cidrBits = bits
	}

	addr, err := parseAddr(literal, opts.Strict)
	if err != nil {
		result.AddIssue(sg.Error(sg.KindInvalidFormat).
			Messagef("invalid IP address %q", literal).
			Value(s).Build())
		return result
	}

	addr = addr.Unmap()
	isV4 := addr.Is4()

	if cidrBits >= 0 {
		maxBits := 128
		if isV4 {
			maxBits = 32
		}
		if cidrBits > maxBits {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("CIDR prefix length %d out of range 0-%d", cidrBits, maxBits).Build())
		}
	}

	// Version restriction
	switch opts.Version {
	case sg.IPv4:
		if !isV4 {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Message("IPv6 address where IPv4 required").Build())
			return result
		}
	case sg.IPv6:
		if isV4 {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Message("IPv4 address where IPv6 required").Build())
			return result
		}
	}

	// Range policy. Each disallowed match is its own fatal error.
	if !opts.AllowPrivate && inAnyRange(addr, privateRanges) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Messagef("private or link-local address %s not allowed", addr).Build())
	}
	if !opts.AllowLoopback && inAnyRange(addr, loopbackRanges) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Messagef("loopback address %s not allowed", addr).Build())
	}
	if !opts.AllowMulticast && inAnyRange(addr, multicastRanges) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Messagef("multicast address %s not allowed", addr).Build())
	}
	if !opts.AllowDocumentation && inAnyRange(addr, documentationRanges) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Messagef("documentation-range address %s not allowed", addr).Build())
	}
	if opts.BlockBogons && inAnyRange(addr, bogonRanges) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Messagef("bogon address %s not allowed", addr).Build())
	}

	return result
}

// parseAddr parses an IP literal. Strict mode requires canonical syntax
// exactly as written; loose mode tolerates surrounding whitespace and
// uppercase hex digits.
func parseAddr(s string, strict bool) (netip.Addr, error) {
	if !strict {
		s = strings.ToLower(strings.TrimSpace(s))
	}
	return netip.ParseAddr(s)
}
