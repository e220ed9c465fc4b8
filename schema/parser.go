package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Construction-time sentinel errors. These are the only errors the package
// returns: invalid data never raises, but a malformed type expression fails
// the schema build before any data is seen.
var (
	// ErrSyntax reports a malformed type expression.
	ErrSyntax = errors.New("schema: invalid type expression")
	// ErrUnknownArgument reports an unrecognized dotted argument.
	ErrUnknownArgument = errors.New("schema: unknown type argument")
	// ErrDuplicateField reports a repeated field name in an object literal.
	ErrDuplicateField = errors.New("schema: duplicate field name")
)

// baseTypes maps DSL identifiers to primitive kinds.
var baseTypes = map[string]PrimitiveKind{
	"string":  PrimString,
	"number":  PrimNumber,
	"int":     PrimInt,
	"integer": PrimInt,
	"bool":    PrimBool,
	"boolean": PrimBool,
	"email":   PrimEmail,
	"url":     PrimURL,
	"ip":      PrimIP,
	"json":    PrimJSON,
	"uuid":    PrimUUID,
	"date":    PrimDate,
	"any":     PrimAny,
}

// validArguments lists the dotted arguments each base type accepts.
// An argument outside this table fails the schema build immediately.
var validArguments = map[PrimitiveKind][]string{
	PrimURL:  {"http", "https", "dev"},
	PrimIP:   {"v4", "v6", "public"},
	PrimDate: {"iso", "unix"},
	PrimJSON: {"secure", "strict"},
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*$`)

// Parse turns a DSL type expression into an immutable node tree.
func Parse(expr string) (*Node, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	return parseUnion(s)
}

// MustParse is like Parse but panics on error. Intended for schemas declared
// as program constants.
func MustParse(expr string) *Node {
	n, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return n
}

func parseUnion(s string) (*Node, error) {
	parts := splitTop(s, '|')
	if len(parts) == 1 {
		return parseAtom(strings.TrimSpace(parts[0]))
	}

	variants := make([]*Node, 0, len(parts))
	for _, part := range parts {
		v, err := parseAtom(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return &Node{Kind: KindUnion, Variants: variants}, nil
}

// splitTop splits s on sep occurrences at brace/paren/bracket depth zero.
// Slash-delimited regex bodies are opaque: a "|" or bracket inside /.../
// never splits or changes depth.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	inRegex := false
	start := 0
	for i := 0; i < len(s); i++ {
		if inRegex {
			switch s[i] {
			case '\\':
				i++
			case '/':
				inRegex = false
			}
			continue
		}
		switch s[i] {
		case '/':
			inRegex = true
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// suffixMarks strips trailing optionality markers: "?" marks the node
// optional, "??" marks it optional and nullable.
func suffixMarks(s string) (body string, optional, nullable bool) {
	if strings.HasSuffix(s, "??") {
		return s[:len(s)-2], true, true
	}
	if strings.HasSuffix(s, "?") {
		return s[:len(s)-1], true, false
	}
	return s, false, false
}

func wrapMarks(n *Node, optional, nullable bool) *Node {
	if nullable {
		n = &Node{Kind: KindNullable, Inner: n}
	}
	if optional {
		n = &Node{Kind: KindOptional, Inner: n}
	}
	return n
}

func parseAtom(s string) (*Node, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty union variant", ErrSyntax)
	}

	switch s[0] {
	case '=':
		body, optional, nullable := suffixMarks(s[1:])
		if body == "" {
			return nil, fmt.Errorf("%w: empty literal value", ErrSyntax)
		}
		return wrapMarks(&Node{Kind: KindLiteral, Literal: body}, optional, nullable), nil

	case '{':
		end := matchBrace(s)
		if end < 0 {
			return nil, fmt.Errorf("%w: unbalanced braces in %q", ErrSyntax, s)
		}
		rest, optional, nullable := suffixMarks(s[end+1:])
		if strings.TrimSpace(rest) != "" {
			return nil, fmt.Errorf("%w: unexpected trailing %q", ErrSyntax, rest)
		}
		obj, err := parseObject(s[1:end])
		if err != nil {
			return nil, err
		}
		return wrapMarks(obj, optional, nullable), nil

	case '/':
		body, optional, nullable := suffixMarks(s)
		if len(body) < 2 || !strings.HasSuffix(body, "/") {
			return nil, fmt.Errorf("%w: unterminated regex %q", ErrSyntax, s)
		}
		re, err := regexp.Compile(body[1 : len(body)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad regex %q: %v", ErrSyntax, body, err)
		}
		return wrapMarks(&Node{Kind: KindRegex, Pattern: re}, optional, nullable), nil
	}

	return parseBase(s)
}

// matchBrace returns the index of the brace closing s[0], or -1.
func matchBrace(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseBase parses `BaseType ["." Argument] [Constraint] ["?"] ["[]"
// [SizeConstraint]] ["?"]`. Suffix order is significant: "string[]?" is an
// optional array of strings while "string?[]" is an array of optional
// strings, and the two produce different trees.
var numericPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func parseBase(s string) (*Node, error) {
	// Bare numeric literal tokens ("1|2|3", "-0.5") are enum members.
	if s[0] >= '0' && s[0] <= '9' || (s[0] == '-' && len(s) > 1 && s[1] >= '0' && s[1] <= '9') {
		body, optional, nullable := suffixMarks(s)
		if !numericPattern.MatchString(body) {
			return nil, fmt.Errorf("%w: malformed numeric literal %q", ErrSyntax, body)
		}
		return wrapMarks(&Node{Kind: KindLiteral, Literal: body}, optional, nullable), nil
	}

	i := 0
	for i < len(s) && (isIdentRune(s[i]) || (i > 0 && s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 {
		return nil, fmt.Errorf("%w: unexpected character %q in %q", ErrSyntax, s[0], s)
	}
	ident := s[:i]

	// Dotted argument
	arg := ""
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isIdentRune(s[j]) || j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i+1 {
			return nil, fmt.Errorf("%w: empty argument after %q", ErrSyntax, ident)
		}
		arg = s[i+1 : j]
		i = j
	}

	// Constraint
	var constraints *Constraints
	if i < len(s) && s[i] == '(' {
		end := matchParen(s[i:])
		if end < 0 {
			return nil, fmt.Errorf("%w: unbalanced parentheses in %q", ErrSyntax, s)
		}
		var err error
		constraints, err = parseConstraint(s[i+1 : i+end])
		if err != nil {
			return nil, err
		}
		i += end + 1
	}

	prim, known := baseTypes[ident]

	// Bare word that is not a base type and carries no suffix syntax is a
	// literal enum member ("active|inactive").
	if !known {
		if arg == "" && constraints == nil && identPattern.MatchString(ident) {
			rest, optional, nullable := suffixMarks(s[i:])
			if rest == "" {
				return wrapMarks(&Node{Kind: KindLiteral, Literal: ident}, optional, nullable), nil
			}
		}
		return nil, fmt.Errorf("%w: unknown base type %q", ErrSyntax, ident)
	}

	if arg != "" {
		if err := checkArgument(prim, arg); err != nil {
			return nil, err
		}
	}

	node := &Node{Kind: KindPrimitive, Prim: prim, Arg: arg, Constraints: constraints}

	// Inner optionality marks, before any array suffix
	innerOpt, innerNull := false, false
	if strings.HasPrefix(s[i:], "??") && strings.HasPrefix(s[i+2:], "[]") {
		innerOpt, innerNull = true, true
		i += 2
	} else if strings.HasPrefix(s[i:], "?") && strings.HasPrefix(s[i+1:], "[]") {
		innerOpt = true
		i++
	}
	node = wrapMarks(node, innerOpt, innerNull)

	// Array suffix
	if strings.HasPrefix(s[i:], "[]") {
		i += 2
		var size *Constraints
		if i < len(s) && s[i] == '(' {
			end := matchParen(s[i:])
			if end < 0 {
				return nil, fmt.Errorf("%w: unbalanced parentheses in %q", ErrSyntax, s)
			}
			var err error
			size, err = parseConstraint(s[i+1 : i+end])
			if err != nil {
				return nil, err
			}
			if size.Pattern != nil {
				return nil, fmt.Errorf("%w: regex constraint not valid for array size", ErrSyntax)
			}
			i += end + 1
		}
		node = &Node{Kind: KindArray, Elem: node, Size: size}
	}

	// Outer optionality marks
	rest, optional, nullable := suffixMarks(s[i:])
	if rest != "" {
		return nil, fmt.Errorf("%w: unexpected trailing %q in %q", ErrSyntax, rest, s)
	}
	return wrapMarks(node, optional, nullable), nil
}

func isIdentRune(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '-'
}

// matchParen returns the index (relative to s) of the paren closing s[0],
// or -1.
func matchParen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func checkArgument(prim PrimitiveKind, arg string) error {
	valid := validArguments[prim]
	for _, v := range valid {
		if v == arg {
			return nil
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("%w: %s takes no arguments, got %q", ErrUnknownArgument, prim, arg)
	}
	return fmt.Errorf("%w: %q is not valid for %s (valid: %s)",
		ErrUnknownArgument, arg, prim, strings.Join(valid, ", "))
}

// parseConstraint parses the inside of a "(...)" group: either "/regex/" or
// "[min],[max]" where an empty token means unbounded on that side.
func parseConstraint(body string) (*Constraints, error) {
	body = strings.TrimSpace(body)

	if strings.HasPrefix(body, "/") {
		if len(body) < 2 || !strings.HasSuffix(body, "/") {
			return nil, fmt.Errorf("%w: unterminated regex constraint %q", ErrSyntax, body)
		}
		re, err := regexp.Compile(body[1 : len(body)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad regex %q: %v", ErrSyntax, body, err)
		}
		return &Constraints{Pattern: re}, nil
	}

	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: constraint %q needs min,max form", ErrSyntax, body)
	}

	c := &Constraints{}
	minTok := strings.TrimSpace(body[:comma])
	maxTok := strings.TrimSpace(body[comma+1:])

	if minTok != "" {
		d, err := decimal.NewFromString(minTok)
		if err != nil {
			return nil, fmt.Errorf("%w: bad minimum %q", ErrSyntax, minTok)
		}
		c.HasMin = true
		c.Min = d
	}
	if maxTok != "" {
		d, err := decimal.NewFromString(maxTok)
		if err != nil {
			return nil, fmt.Errorf("%w: bad maximum %q", ErrSyntax, maxTok)
		}
		c.HasMax = true
		c.Max = d
	}
	if c.HasMin && c.HasMax && c.Min.GreaterThan(c.Max) {
		return nil, fmt.Errorf("%w: minimum %s exceeds maximum %s", ErrSyntax, c.Min, c.Max)
	}
	return c, nil
}

// parseObject parses the inside of an object literal's braces.
func parseObject(body string) (*Node, error) {
	body = strings.TrimSpace(body)
	node := &Node{Kind: KindObject}
	if body == "" {
		return node, nil
	}

	seen := make(map[string]bool)
	for _, fieldExpr := range splitTop(body, ',') {
		fieldExpr = strings.TrimSpace(fieldExpr)
		if fieldExpr == "" {
			continue
		}

		colon := indexTop(fieldExpr, ':')
		if colon < 0 {
			return nil, fmt.Errorf("%w: field %q needs name: type form", ErrSyntax, fieldExpr)
		}

		name := strings.TrimSpace(fieldExpr[:colon])
		if !identPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid field name %q", ErrSyntax, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
		}
		seen[name] = true

		fieldType, err := parseUnion(strings.TrimSpace(fieldExpr[colon+1:]))
		if err != nil {
			return nil, err
		}
		node.Fields = append(node.Fields, Field{Name: name, Type: fieldType})
	}
	return node, nil
}

// indexTop finds the first sep at brace/paren/bracket depth zero.
func indexTop(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
