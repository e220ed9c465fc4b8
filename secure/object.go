package secure

import (
	"strings"

	sg "github.com/schemaguard/validator"
)

// ValidateObject validates the shape and key policy of an object graph.
//
// The shape gates (null, array, non-object) run first and short-circuit;
// everything after them accumulates. The allowed-key list is fatal only in
// strict mode and a warning otherwise.
func ValidateObject(value any, opts *sg.ObjectOptions) *sg.Result {
	if opts == nil {
		opts = sg.DefaultObjectOptions()
	}

	result := sg.NewResult(value)

	// Shape gates
	if value == nil {
		if !opts.AllowNull {
			result.AddError(sg.KindTypeMismatch, "null not allowed")
		}
		return result
	}
	if _, isArray := value.([]any); isArray {
		if !opts.AllowArray {
			result.AddError(sg.KindTypeMismatch, "array not allowed where object expected")
		}
		return result
	}
	obj, ok := value.(map[string]any)
	if !ok {
		result.AddIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected object, got %T", value).
			Value(value).Build())
		return result
	}

	// Pollution guard
	if opts.PreventPrototypePollution && ScanPollution(obj) {
		result.AddIssue(sg.Fatal(sg.KindSecurityViolation).
			Message("prototype pollution attempt detected").Build())
	}

	// Key count
	if opts.MaxKeys > 0 && len(obj) > opts.MaxKeys {
		result.AddIssue(sg.Error(sg.KindLengthViolation).
			Messagef("key count %d exceeds maximum %d", len(obj), opts.MaxKeys).Build())
	}

	allowed := toSet(opts.AllowedKeys)
	forbidden := toSet(opts.ForbiddenKeys)

	for key := range obj {
		// Property name length
		if opts.MaxPropertyNameLength > 0 && len(key) > opts.MaxPropertyNameLength {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("property name length %d exceeds maximum %d", len(key), opts.MaxPropertyNameLength).
				Value(key).Build())
		}

		if forbidden[key] {
			result.AddIssue(sg.Error(sg.KindSecurityViolation).
				Messagef("forbidden key %q", key).Build())
		}

		if len(allowed) > 0 && !allowed[key] {
			if opts.Strict {
				result.AddIssue(sg.Error(sg.KindSecurityViolation).
					Messagef("key %q not in allowed list", key).Build())
			} else {
				result.AddWarning(sg.KindSecurityViolation, "key "+key+" not in allowed list")
			}
		}

		if opts.KeyPattern != nil && !opts.KeyPattern.MatchString(key) {
			result.AddIssue(sg.Error(sg.KindPatternMismatch).
				Messagef("key %q does not match required pattern", key).Build())
		}

		// Suspicious-name heuristic: warning only.
		lower := strings.ToLower(key)
		if strings.HasPrefix(key, "__") ||
			strings.Contains(lower, "prototype") ||
			strings.Contains(lower, "constructor") {
			result.AddWarning(sg.KindSecurityViolation, "suspicious property name "+key)
		}
	}

	for _, required := range opts.RequiredKeys {
		if _, present := obj[required]; !present {
			result.AddIssue(sg.Error(sg.KindTypeMismatch).
				Messagef("required key %q missing", required).Build())
		}
	}

	// Depth-bounded structural walk
	if opts.MaxDepth > 0 {
		if depth := measureDepth(obj, 1, opts.MaxDepth+1); depth > opts.MaxDepth {
			result.AddIssue(sg.Error(sg.KindLengthViolation).
				Messagef("nesting depth exceeds maximum %d", opts.MaxDepth).Build())
		}
	}

	// External structural-schema delegate
	if opts.Delegate != nil {
		if delegated := opts.Delegate(obj, opts.DelegateSchema); delegated != nil {
			result.Merge(delegated)
		}
	}

	return result
}

// measureDepth walks the graph up to limit levels deep. The limit keeps the
// walk bounded even for adversarially deep inputs.
func measureDepth(v any, depth, limit int) int {
	if depth >= limit {
		return depth
	}
	deepest := depth
	switch val := v.(type) {
	case map[string]any:
		for _, child := range val {
			if d := measureDepth(child, depth+1, limit); d > deepest {
				deepest = d
			}
		}
	case []any:
		for _, item := range val {
			if d := measureDepth(item, depth+1, limit); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

func toSet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
