package secure

import (
	"strings"
	"testing"

	sg "github.com/schemaguard/validator"
)

func TestValidateEmailBasic(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last@sub.example.org", true},
		{"a..b@example.com", false},  // consecutive dots
		{".a@example.com", false},    // leading dot
		{"a.@example.com", false},    // trailing dot
		{"a@b", false},               // domain without dot
		{"a@@example.com", false},    // two @
		{"no-at-sign", false},        // zero @
		{"@example.com", false},      // empty local
		{"user@", false},             // empty domain
		{"user+tag@example.com", false}, // plus addressing rejected
	}

	for _, tt := range tests {
		r := ValidateEmail(tt.in, nil)
		if r.Valid != tt.valid {
			t.Errorf("ValidateEmail(%q).Valid = %v; want %v (%v)", tt.in, r.Valid, tt.valid, r.Issues)
		}
	}
}

func TestValidateEmailNormalization(t *testing.T) {
	r := ValidateEmail("  User@Example.COM  ", nil)
	if !r.Valid {
		t.Fatalf("should pass after normalization: %v", r.Issues)
	}
	if r.Data != "user@example.com" {
		t.Errorf("Data = %q", r.Data)
	}
	if !r.HasWarnings() {
		t.Error("normalization should warn")
	}

	// Idempotence
	r2 := ValidateEmail(r.Data, nil)
	if !r2.Valid {
		t.Error("normalized form should revalidate")
	}
	for _, w := range r2.WarningMessages() {
		if strings.Contains(w, "lower-cased") {
			t.Error("already-normalized input should not warn about casing")
		}
	}
}

func TestValidateEmailLengthCaps(t *testing.T) {
	long := strings.Repeat("a", 250) + "@example.com"
	r := ValidateEmail(long, nil)
	if r.Valid {
		t.Error("overlong address should fail")
	}
	// Overall cap short-circuits: only the length issue
	if len(r.Errors()) != 1 || r.Errors()[0].Code != sg.KindLengthViolation {
		t.Errorf("Errors = %v", r.Errors())
	}

	local65 := strings.Repeat("a", 65) + "@example.com"
	if r := ValidateEmail(local65, nil); r.Valid {
		t.Error("local part over 64 should fail")
	}
}

func TestValidateEmailStrictTLD(t *testing.T) {
	if r := ValidateEmail("user@example.c0m", nil); r.Valid {
		t.Error("strict mode requires an alphabetic TLD")
	}

	opts := sg.DefaultEmailOptions()
	opts.Strict = false
	if r := ValidateEmail("user@example.c0m", opts); !r.Valid {
		t.Errorf("non-strict mode allows alphanumeric labels: %v", r.Issues)
	}
	if r := ValidateEmail("user@-bad-.com", opts); r.Valid {
		t.Error("hyphen-edged label should fail label syntax")
	}
}

func TestValidateEmailDomainLists(t *testing.T) {
	opts := sg.DefaultEmailOptions()
	opts.AllowedDomains = []string{"example.com"}

	if r := ValidateEmail("a@example.com", opts); !r.Valid {
		t.Errorf("allowed domain should pass: %v", r.Issues)
	}
	if r := ValidateEmail("a@other.com", opts); r.Valid {
		t.Error("domain outside allow-list should fail")
	}

	opts = sg.DefaultEmailOptions()
	opts.BlockedDomains = []string{"blocked.example"}
	if r := ValidateEmail("a@blocked.example", opts); r.Valid {
		t.Error("blocked domain should fail")
	}
}

func TestValidateEmailDisposableWarning(t *testing.T) {
	r := ValidateEmail("noreply@example.com", nil)
	if !r.Valid {
		t.Fatalf("disposable hint must stay a warning: %v", r.Errors())
	}
	if !r.HasWarnings() {
		t.Error("disposable-looking address should warn")
	}

	opts := sg.DefaultEmailOptions()
	opts.WarnDisposable = false
	if r := ValidateEmail("noreply@example.com", opts); r.HasWarnings() {
		t.Error("warning should be suppressible")
	}
}

func TestValidateEmailType(t *testing.T) {
	r := ValidateEmail(123, nil)
	if r.Valid || r.Errors()[0].Code != sg.KindTypeMismatch {
		t.Error("non-string should fail with type-mismatch")
	}
}
