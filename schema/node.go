// Package schema implements the type DSL: a tokenizer/parser producing
// immutable node trees, and a compiler turning node trees into reusable
// validators.
package schema

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags the variant of a Node.
type Kind int

// Node kinds.
const (
	// KindPrimitive is a base type with optional constraints.
	KindPrimitive Kind = iota
	// KindArray is a sequence of one element type with an optional size constraint.
	KindArray
	// KindUnion is an ordered choice between two or more variants.
	KindUnion
	// KindLiteral matches one exact value.
	KindLiteral
	// KindObject is a set of uniquely named fields.
	KindObject
	// KindOptional wraps a node whose key may be absent.
	KindOptional
	// KindNullable wraps a node whose value may be explicit null.
	KindNullable
	// KindRegex matches strings against a pattern.
	KindRegex
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindUnion:
		return "union"
	case KindLiteral:
		return "literal"
	case KindObject:
		return "object"
	case KindOptional:
		return "optional"
	case KindNullable:
		return "nullable"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// PrimitiveKind identifies a base type of the DSL.
type PrimitiveKind string

// Base types.
const (
	PrimString PrimitiveKind = "string"
	PrimNumber PrimitiveKind = "number"
	PrimInt    PrimitiveKind = "int"
	PrimBool   PrimitiveKind = "bool"
	PrimEmail  PrimitiveKind = "email"
	PrimURL    PrimitiveKind = "url"
	PrimIP     PrimitiveKind = "ip"
	PrimJSON   PrimitiveKind = "json"
	PrimUUID   PrimitiveKind = "uuid"
	PrimDate   PrimitiveKind = "date"
	PrimAny    PrimitiveKind = "any"
)

// Constraints holds a parsed "(min,max)" or "(/regex/)" constraint.
// For strings the bounds are rune counts, for numbers value bounds, for
// arrays element counts. A missing bound means unbounded on that side.
type Constraints struct {
	HasMin  bool
	Min     decimal.Decimal
	HasMax  bool
	Max     decimal.Decimal
	Pattern *regexp.Regexp
}

// Field is one named member of an object node.
type Field struct {
	Name string
	Type *Node
}

// Node is one vertex of a parsed type tree. A node tree is built once by the
// parser and never mutated afterwards; it may be shared and evaluated
// concurrently without synchronization.
type Node struct {
	Kind Kind

	// KindPrimitive
	Prim        PrimitiveKind
	Arg         string // dotted argument, e.g. "https" in url.https
	Constraints *Constraints

	// KindArray
	Elem *Node
	Size *Constraints

	// KindUnion: ordered, length >= 2
	Variants []*Node

	// KindLiteral: canonical string form of the expected value
	Literal string

	// KindObject: ordered fields with unique names
	Fields []Field

	// KindOptional / KindNullable
	Inner *Node

	// KindRegex
	Pattern *regexp.Regexp
}

// Signature returns a canonical serialization of the node tree. Equal trees
// produce equal signatures, which is what lets equivalent schemas share one
// compiled validator and one cache keyspace.
func (n *Node) Signature() string {
	var b strings.Builder
	n.writeSignature(&b)
	return b.String()
}

func (n *Node) writeSignature(b *strings.Builder) {
	switch n.Kind {
	case KindPrimitive:
		b.WriteString(string(n.Prim))
		if n.Arg != "" {
			b.WriteByte('.')
			b.WriteString(n.Arg)
		}
		writeConstraints(b, n.Constraints)
	case KindArray:
		n.Elem.writeSignature(b)
		b.WriteString("[]")
		writeConstraints(b, n.Size)
	case KindUnion:
		for i, v := range n.Variants {
			if i > 0 {
				b.WriteByte('|')
			}
			v.writeSignature(b)
		}
	case KindLiteral:
		b.WriteByte('=')
		b.WriteString(n.Literal)
	case KindObject:
		b.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(f.Name)
			b.WriteByte(':')
			f.Type.writeSignature(b)
		}
		b.WriteByte('}')
	case KindOptional:
		n.Inner.writeSignature(b)
		b.WriteByte('?')
	case KindNullable:
		n.Inner.writeSignature(b)
		b.WriteByte('~')
	case KindRegex:
		b.WriteString("(/")
		b.WriteString(n.Pattern.String())
		b.WriteString("/)")
	}
}

func writeConstraints(b *strings.Builder, c *Constraints) {
	if c == nil {
		return
	}
	if c.Pattern != nil {
		b.WriteString("(/")
		b.WriteString(c.Pattern.String())
		b.WriteString("/)")
		return
	}
	b.WriteByte('(')
	if c.HasMin {
		b.WriteString(c.Min.String())
	}
	b.WriteByte(',')
	if c.HasMax {
		b.WriteString(c.Max.String())
	}
	b.WriteByte(')')
}

// unwrap strips Optional and Nullable wrappers, reporting what was stripped.
func (n *Node) unwrap() (inner *Node, optional, nullable bool) {
	inner = n
	for {
		switch inner.Kind {
		case KindOptional:
			optional = true
			inner = inner.Inner
		case KindNullable:
			nullable = true
			inner = inner.Inner
		default:
			return inner, optional, nullable
		}
	}
}

// IsOptional reports whether the node (possibly through wrappers) permits
// key absence.
func (n *Node) IsOptional() bool {
	_, optional, _ := n.unwrap()
	return optional
}

// IsNullable reports whether the node (possibly through wrappers) permits
// an explicit null value.
func (n *Node) IsNullable() bool {
	_, _, nullable := n.unwrap()
	return nullable
}
