package schemaguard

// Version is the library release version.
const Version = "0.2.0"

// GrammarVersion identifies a revision of the type DSL grammar.
type GrammarVersion string

// Supported grammar versions.
const (
	// GrammarV1 is the current DSL grammar: unions, constraints, arrays,
	// literals, optional/nullable suffixes, and nested object literals.
	GrammarV1 GrammarVersion = "v1"
)

// String returns the grammar version string.
func (v GrammarVersion) String() string {
	return string(v)
}

// IsValid returns true if this is a supported grammar version.
func (v GrammarVersion) IsValid() bool {
	return v == GrammarV1
}
