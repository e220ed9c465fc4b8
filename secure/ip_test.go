package secure

import (
	"testing"

	sg "github.com/schemaguard/validator"
)

func TestValidateIPDefaults(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"8.8.8.8", true},
		{"10.0.0.1", true},  // private allowed by default
		{"127.0.0.1", true}, // loopback allowed by default
		{"192.0.2.1", true}, // documentation allowed by default
		{"224.0.0.1", false}, // multicast rejected by default
		{"ff02::1", false},
		{"2001:4860:4860::8888", true},
		{"::1", true},
		{"300.1.1.1", false},   // octet out of range
		{"1.2.3", false},       // truncated
		{"1.2.3.4.5", false},   // extra octet
		{"not-an-ip", false},
		{"", false},
	}

	for _, tt := range tests {
		r := ValidateIP(tt.in, nil)
		if r.Valid != tt.valid {
			t.Errorf("ValidateIP(%q).Valid = %v; want %v (%v)", tt.in, r.Valid, tt.valid, r.Issues)
		}
	}
}

func TestValidateIPPublicPolicy(t *testing.T) {
	opts := sg.DefaultIPOptions()
	opts.AllowPrivate = false
	opts.AllowLoopback = false

	for _, in := range []string{"10.0.0.1", "172.16.5.5", "192.168.1.1", "169.254.0.1", "127.0.0.1", "fe80::1", "fc00::1", "::1"} {
		r := ValidateIP(in, opts)
		if r.Valid {
			t.Errorf("%q should fail the public policy", in)
			continue
		}
		if r.Errors()[0].Severity != sg.SeverityFatal {
			t.Errorf("%q: range violations are fatal", in)
		}
	}

	if r := ValidateIP("8.8.8.8", opts); !r.Valid {
		t.Errorf("public address should pass: %v", r.Issues)
	}
}

func TestValidateIPBogons(t *testing.T) {
	opts := sg.DefaultIPOptions()
	opts.BlockBogons = true

	for _, in := range []string{"0.1.2.3", "240.0.0.1", "255.255.255.255"} {
		if r := ValidateIP(in, opts); r.Valid {
			t.Errorf("%q should be rejected as bogon", in)
		}
	}
}

func TestValidateIPVersionRestriction(t *testing.T) {
	opts := sg.DefaultIPOptions()
	opts.Version = sg.IPv4
	if r := ValidateIP("::1", opts); r.Valid {
		t.Error("IPv6 literal should fail a v4 restriction")
	}
	if r := ValidateIP("1.2.3.4", opts); !r.Valid {
		t.Errorf("IPv4 literal should pass: %v", r.Issues)
	}

	opts.Version = sg.IPv6
	if r := ValidateIP("1.2.3.4", opts); r.Valid {
		t.Error("IPv4 literal should fail a v6 restriction")
	}
	if r := ValidateIP("2001:db8::1", opts); !r.Valid {
		t.Errorf("IPv6 literal should pass: %v", r.Issues)
	}
}

func TestValidateIPCIDR(t *testing.T) {
	// CIDR rejected by default
	if r := ValidateIP("10.0.0.0/8", nil); r.Valid {
		t.Error("CIDR should be rejected unless enabled")
	}

	opts := sg.DefaultIPOptions()
	opts.AllowCIDR = true
	if r := ValidateIP("10.0.0.0/8", opts); !r.Valid {
		t.Errorf("CIDR should pass when enabled: %v", r.Issues)
	}
	if r := ValidateIP("10.0.0.0/33", opts); r.Valid {
		t.Error("/33 is out of range for IPv4")
	}
	if r := ValidateIP("2001:db8::/64", opts); !r.Valid {
		t.Errorf("IPv6 CIDR should pass: %v", r.Issues)
	}
	if r := ValidateIP("2001:db8::/129", opts); r.Valid {
		t.Error("/129 is out of range for IPv6")
	}
	if r := ValidateIP("10.0.0.0/x", opts); r.Valid {
		t.Error("non-numeric prefix length should fail")
	}
}

func TestValidateIPStrictSyntax(t *testing.T) {
	// Strict mode takes the literal exactly as written.
	if r := ValidateIP(" 8.8.8.8 ", nil); r.Valid {
		t.Error("surrounding whitespace should fail strict parsing")
	}

	opts := sg.DefaultIPOptions()
	opts.Strict = false
	if r := ValidateIP(" 8.8.8.8 ", opts); !r.Valid {
		t.Errorf("loose mode tolerates whitespace: %v", r.Issues)
	}
}

func TestValidateIPType(t *testing.T) {
	r := ValidateIP(808, nil)
	if r.Valid || r.Errors()[0].Code != sg.KindTypeMismatch {
		t.Error("non-string should fail with type-mismatch")
	}
}
