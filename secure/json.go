package secure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/buger/jsonparser"

	sg "github.com/schemaguard/validator"
	"github.com/schemaguard/validator/pool"
)

// strictPolicy is the process-wide structural policy applied in strict mode.
// It recursively forbids dangerous properties on top of whatever the caller's
// options allow. Initialized lazily on first strict validation.
type strictPolicy struct {
	forbiddenKeys map[string]bool
}

var (
	strictPolicyOnce sync.Once
	strictPolicyInst *strictPolicy
)

func getStrictPolicy() *strictPolicy {
	strictPolicyOnce.Do(func() {
		strictPolicyInst = &strictPolicy{
			forbiddenKeys: map[string]bool{
				"__proto__":   true,
				"constructor": true,
				"prototype":   true,
				"eval":        true,
				"exec":        true,
				"script":      true,
			},
		}
	})
	return strictPolicyInst
}

// ValidateJSON validates a JSON document supplied either as a raw string or
// as an already-parsed structure.
//
// String input is length-capped before any parsing happens. In secure and
// strict modes the parsed graph is scanned for prototype pollution; strict
// mode additionally applies the singleton structural policy (depth, key
// count, per-node string/array caps, type and key policies), with all
// violations accumulating rather than short-circuiting.
func ValidateJSON(value any, opts *sg.JSONOptions) *sg.Result {
	if opts == nil {
		opts = sg.DefaultJSONOptions()
	}

	result := sg.NewResult(value)

	var parsed any
	switch v := value.(type) {
	case string:
		// Length cap before parsing: the only defense against an oversized
		// payload consuming unbounded parse work.
		if opts.MaxLength > 0 && len(v) > opts.MaxLength {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("JSON input length %d exceeds maximum %d", len(v), opts.MaxLength).Build())
			return result
		}

		raw := []byte(v)
		if err := json.Unmarshal(raw, &parsed); err != nil {
			result.AddIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("malformed JSON: %v", err).Build())
			return result
		}

		// Raw-byte key prescan. Decoding collapses duplicate keys, so a
		// denylisted name can hide behind a benign duplicate; scanning the
		// original bytes sees every occurrence.
		if opts.Mode != sg.JSONModeBasic {
			for _, key := range scanRawKeys(raw, forbiddenKeySet(opts)) {
				result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
					Messagef("dangerous key %q in raw JSON", key).Build())
			}
		}

	case []byte:
		return ValidateJSON(string(v), opts)

	default:
		parsed = value

		// Circular-reference probe: a full serialization failing is taken as
		// evidence of a cycle. This is an approximation, not a graph walk.
		if opts.DetectCycles {
			if _, err := json.Marshal(parsed); err != nil {
				result.AddIssue(sg.Error(sg.KindInvalidFormat).
					Messagef("structure cannot be serialized (possible circular reference): %v", err).Build())
				return result
			}
		}
	}

	result.Data = parsed

	if opts.Mode == sg.JSONModeSecure || opts.Mode == sg.JSONModeStrict {
		if ScanPollution(parsed) {
			result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
				Message("prototype pollution attempt detected").Build())
		}
	}

	if opts.Mode == sg.JSONModeStrict {
		walkStructure(parsed, opts, getStrictPolicy(), result)
	}

	return result
}

func forbiddenKeySet(opts *sg.JSONOptions) map[string]bool {
	if len(opts.ForbiddenKeys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(opts.ForbiddenKeys))
	for _, k := range opts.ForbiddenKeys {
		set[k] = true
	}
	return set
}

// scanRawKeys walks raw JSON bytes collecting denylisted key names.
func scanRawKeys(data []byte, forbidden map[string]bool) []string {
	var hits []string
	scanRaw(data, forbidden, &hits)
	return hits
}

func scanRaw(data []byte, forbidden map[string]bool, hits *[]string) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '{':
		_ = jsonparser.ObjectEach(trimmed, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
			k := string(key)
			if IsPollutionKey(k) || forbidden[k] {
				*hits = append(*hits, k)
			}
			if vt == jsonparser.Object || vt == jsonparser.Array {
				scanRaw(value, forbidden, hits)
			}
			return nil
		})
	case '[':
		_, _ = jsonparser.ArrayEach(trimmed, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			if vt == jsonparser.Object || vt == jsonparser.Array {
				scanRaw(value, forbidden, hits)
			}
		})
	}
}

// structureState carries cumulative counters through the deep walk.
type structureState struct {
	keyCount    int
	keysFlagged bool
}

// walkStructure enforces the deep structural limits. All violations
// accumulate into the result; nothing here short-circuits.
func walkStructure(v any, opts *sg.JSONOptions, policy *strictPolicy, result *sg.Result) {
	segments := pool.AcquireStringSlice()
	defer pool.ReleaseStringSlice(segments)

	state := &structureState{}
	walkNode(v, 0, segments, state, opts, policy, result)
}

// pathAt snapshots the walk's scratch segments. Issues keep their Path after
// the walk pushes and pops past them, so they must never alias the live
// pooled buffer.
func pathAt(segments *[]string) []string {
	if len(*segments) == 0 {
		return nil
	}
	p := make([]string, len(*segments))
	copy(p, *segments)
	return p
}

func walkNode(v any, depth int, segments *[]string, state *structureState, opts *sg.JSONOptions, policy *strictPolicy, result *sg.Result) {
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("nesting depth %d exceeds maximum %d", depth, opts.MaxDepth).
			At(pathAt(segments)...).Build())
		return
	}

	if !typeAllowed(v, opts) {
		result.AddIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("value type %s not permitted", jsonTypeName(v)).
			At(pathAt(segments)...).Build())
	}

	switch val := v.(type) {
	case map[string]any:
		state.keyCount += len(val)
		if opts.MaxKeys > 0 && state.keyCount > opts.MaxKeys && !state.keysFlagged {
			state.keysFlagged = true
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("cumulative key count exceeds maximum %d", opts.MaxKeys).
				At(pathAt(segments)...).Build())
		}
		for key, child := range val {
			if policy.forbiddenKeys[key] {
				result.AddIssue(sg.Error(sg.KindSecurityViolation).
					Messagef("forbidden key %q", key).
					At(pathAt(segments)...).Build())
			}
			*segments = append(*segments, key)
			walkNode(child, depth+1, segments, state, opts, policy, result)
			*segments = (*segments)[:len(*segments)-1]
		}

	case []any:
		if opts.MaxArrayLength > 0 && len(val) > opts.MaxArrayLength {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("array length %d exceeds maximum %d", len(val), opts.MaxArrayLength).
				At(pathAt(segments)...).Build())
		}
		for i, item := range val {
			*segments = append(*segments, strconv.Itoa(i))
			walkNode(item, depth+1, segments, state, opts, policy, result)
			*segments = (*segments)[:len(*segments)-1]
		}

	case string:
		if opts.MaxStringLength > 0 && len(val) > opts.MaxStringLength {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("string length %d exceeds maximum %d", len(val), opts.MaxStringLength).
				At(pathAt(segments)...).Build())
		}
	}
}

func typeAllowed(v any, opts *sg.JSONOptions) bool {
	name := jsonTypeName(v)
	for _, t := range opts.ForbiddenTypes {
		if t == name {
			return false
		}
	}
	if len(opts.AllowedTypes) == 0 {
		return true
	}
	for _, t := range opts.AllowedTypes {
		if t == name {
			return true
		}
	}
	return false
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, json.Number, int, int64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
