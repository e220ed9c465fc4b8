package secure

import (
	"strings"
	"testing"

	sg "github.com/schemaguard/validator"
)

func TestValidateJSONString(t *testing.T) {
	r := ValidateJSON(`{"a": 1, "b": [true, null]}`, nil)
	if !r.Valid {
		t.Fatalf("well-formed JSON should pass: %v", r.Issues)
	}
	if _, ok := r.Data.(map[string]any); !ok {
		t.Errorf("Data should hold the parsed structure, got %T", r.Data)
	}

	r = ValidateJSON(`{"a": `, nil)
	if r.Valid || r.Errors()[0].Code != sg.KindInvalidFormat {
		t.Error("malformed JSON should fail with invalid-format")
	}
}

func TestValidateJSONLengthCap(t *testing.T) {
	opts := sg.DefaultJSONOptions()
	opts.MaxLength = 10

	r := ValidateJSON(`{"key": "value too long"}`, opts)
	if r.Valid {
		t.Fatal("oversized input should fail")
	}
	// The cap runs before parsing: only the length issue
	if len(r.Issues) != 1 || r.Issues[0].Code != sg.KindLengthViolation {
		t.Errorf("Issues = %v", r.Issues)
	}
}

func TestValidateJSONDuplicateKeyPrescan(t *testing.T) {
	// Decoding collapses duplicates, so only a raw scan can see the second
	// occurrence of the dangerous key.
	raw := `{"__proto__": {"x": 1}, "__proto__": {"polluted": true}}`
	r := ValidateJSON(raw, nil)
	if r.Valid {
		t.Fatal("raw pollution key should be fatal")
	}

	// Nested occurrences are found too
	r = ValidateJSON(`{"outer": [{"constructor": 1}]}`, nil)
	if r.Valid {
		t.Error("nested dangerous key should be detected")
	}

	// Basic mode skips the prescan
	opts := sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeBasic
	r = ValidateJSON(`{"constructor": 1}`, opts)
	if !r.Valid {
		t.Error("basic mode should not run security scans")
	}
}

func TestValidateJSONParsedInput(t *testing.T) {
	parsed := map[string]any{"a": []any{1.0, 2.0}}
	r := ValidateJSON(parsed, nil)
	if !r.Valid {
		t.Fatalf("clean parsed structure should pass: %v", r.Issues)
	}

	polluted := map[string]any{"nested": map[string]any{"__proto__": 1}}
	r = ValidateJSON(polluted, nil)
	if r.Valid {
		t.Error("pollution in parsed input should be fatal")
	}
}

func TestValidateJSONCycleProbe(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	r := ValidateJSON(cyclic, nil)
	if r.Valid {
		t.Error("circular structure should fail the serialization probe")
	}
}

func TestValidateJSONStrictStructure(t *testing.T) {
	opts := sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.MaxDepth = 2

	deep := `{"a": {"b": {"c": 1}}}`
	r := ValidateJSON(deep, opts)
	if r.Valid {
		t.Error("over-deep structure should fail in strict mode")
	}

	opts = sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.MaxStringLength = 5
	r = ValidateJSON(`{"s": "`+strings.Repeat("x", 10)+`"}`, opts)
	if r.Valid {
		t.Error("over-long string node should fail in strict mode")
	}
	if len(r.Errors()[0].Path) == 0 || r.Errors()[0].Path[0] != "s" {
		t.Errorf("issue should carry the node path, got %v", r.Errors()[0].Path)
	}

	opts = sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.MaxArrayLength = 2
	r = ValidateJSON(`{"a": [1,2,3]}`, opts)
	if r.Valid {
		t.Error("over-long array should fail in strict mode")
	}

	// Violations accumulate
	opts = sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.MaxStringLength = 1
	opts.MaxArrayLength = 1
	r = ValidateJSON(`{"a": [1, 2], "b": "xx", "c": "yy"}`, opts)
	if r.ErrorCount() < 3 {
		t.Errorf("ErrorCount = %d; want all violations reported", r.ErrorCount())
	}
}

func TestValidateJSONTypePolicy(t *testing.T) {
	opts := sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.ForbiddenTypes = []string{"null"}

	r := ValidateJSON(`{"a": null}`, opts)
	if r.Valid {
		t.Error("forbidden type should fail")
	}

	opts = sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.AllowedTypes = []string{"object", "string"}
	r = ValidateJSON(`{"a": 42}`, opts)
	if r.Valid {
		t.Error("type outside allow-list should fail")
	}
}

func TestValidateJSONStrictPathsAreStable(t *testing.T) {
	opts := sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict
	opts.MaxStringLength = 1

	r := ValidateJSON(`{"alpha": "xx", "beta": "yy"}`, opts)

	// Each violation keeps the path it was recorded at; later walk steps
	// must not rewrite earlier issues.
	paths := make(map[string]bool)
	for _, iss := range r.Errors() {
		if iss.Code == sg.KindLengthViolation && len(iss.Path) == 1 {
			paths[iss.Path[0]] = true
		}
	}
	if !paths["alpha"] || !paths["beta"] {
		t.Errorf("length issues at %v; want one at alpha and one at beta", paths)
	}
}

func TestValidateJSONStrictForbiddenKeys(t *testing.T) {
	opts := sg.DefaultJSONOptions()
	opts.Mode = sg.JSONModeStrict

	for _, key := range []string{"eval", "exec", "script"} {
		r := ValidateJSON(`{"`+key+`": 1}`, opts)
		if r.Valid {
			t.Errorf("strict policy should reject key %q", key)
		}
	}
}

func TestValidateJSONBytes(t *testing.T) {
	r := ValidateJSON([]byte(`{"ok": true}`), nil)
	if !r.Valid {
		t.Errorf("byte input should validate like a string: %v", r.Issues)
	}
}
