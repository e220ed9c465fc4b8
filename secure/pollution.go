package secure

import (
	"reflect"
	"strings"
	"unicode"
)

// pollutionKeys is the set of normalised property names that indicate a
// prototype-pollution attempt.
var pollutionKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsPollutionKey reports whether a property name is denylisted.
// The name is cleaned of non-printable and non-ASCII runes and lower-cased
// before matching, so look-alike encodings cannot smuggle a key past the scan.
func IsPollutionKey(name string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, name)
	return pollutionKeys[strings.ToLower(cleaned)]
}

// ScanPollution recursively scans an object graph for denylisted property
// names. It returns true if any map key anywhere in the graph is denylisted.
//
// A visited set keyed on map/slice identity guards against cyclic graphs:
// a revisited node is treated as already-checked and the scan stops there
// instead of recursing forever.
func ScanPollution(v any) bool {
	return scanPollution(v, make(map[uintptr]bool))
}

func scanPollution(v any, visited map[uintptr]bool) bool {
	switch val := v.(type) {
	case map[string]any:
		id := reflect.ValueOf(val).Pointer()
		if visited[id] {
			return false
		}
		visited[id] = true
		for key, child := range val {
			if IsPollutionKey(key) {
				return true
			}
			if scanPollution(child, visited) {
				return true
			}
		}
	case []any:
		id := reflect.ValueOf(val).Pointer()
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, item := range val {
			if scanPollution(item, visited) {
				return true
			}
		}
	}
	return false
}
