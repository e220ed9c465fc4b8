package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	sg "github.com/schemaguard/validator"
	"github.com/schemaguard/validator/cache"
	"github.com/schemaguard/validator/secure"
)

// Compiled is the immutable, executable form of a node tree. It is a pure
// function of the tree: equivalent schemas share one compiled validator, and
// a Compiled may be evaluated concurrently without synchronization.
type Compiled struct {
	node *Node
	sig  string
}

// Compile transforms a node tree into an executable validator.
func Compile(node *Node) (*Compiled, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrSyntax)
	}
	if err := verify(node); err != nil {
		return nil, err
	}
	return &Compiled{node: node, sig: node.Signature()}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(node *Node) *Compiled {
	c, err := Compile(node)
	if err != nil {
		panic(err)
	}
	return c
}

// compileEntry memoizes one CompileString outcome, errors included, so a
// repeatedly mistyped schema fails fast without reparsing.
type compileEntry struct {
	compiled *Compiled
	err      error
}

var compileCache = cache.New[string, compileEntry](256)

// CompileString parses and compiles a DSL expression. Results are memoized
// process-wide by expression string, so equivalent declarations share one
// validator.
func CompileString(expr string) (*Compiled, error) {
	entry := compileCache.GetOrSet(expr, func() compileEntry {
		node, err := Parse(expr)
		if err != nil {
			return compileEntry{err: err}
		}
		compiled, err := Compile(node)
		return compileEntry{compiled: compiled, err: err}
	})
	return entry.compiled, entry.err
}

// MustCompileString is like CompileString but panics on error.
func MustCompileString(expr string) *Compiled {
	c, err := CompileString(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Node returns the underlying node tree.
func (c *Compiled) Node() *Node {
	return c.node
}

// Signature returns the canonical signature of the compiled tree.
func (c *Compiled) Signature() string {
	return c.sig
}

// verify rejects trees the parser could never produce but a hand-built tree
// might: construction problems fail here, before any data is validated.
func verify(n *Node) error {
	switch n.Kind {
	case KindPrimitive:
		switch n.Prim {
		case PrimString, PrimNumber, PrimInt, PrimBool, PrimEmail,
			PrimURL, PrimIP, PrimJSON, PrimUUID, PrimDate, PrimAny:
		default:
			return fmt.Errorf("%w: unknown primitive %q", ErrSyntax, n.Prim)
		}
		if n.Arg != "" {
			return checkArgument(n.Prim, n.Arg)
		}
	case KindArray:
		if n.Elem == nil {
			return fmt.Errorf("%w: array without element type", ErrSyntax)
		}
		return verify(n.Elem)
	case KindUnion:
		if len(n.Variants) < 2 {
			return fmt.Errorf("%w: union needs at least two variants", ErrSyntax)
		}
		for _, v := range n.Variants {
			if err := verify(v); err != nil {
				return err
			}
		}
	case KindLiteral:
		if n.Literal == "" {
			return fmt.Errorf("%w: empty literal", ErrSyntax)
		}
	case KindObject:
		seen := make(map[string]bool, len(n.Fields))
		for _, f := range n.Fields {
			if seen[f.Name] {
				return fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
			}
			seen[f.Name] = true
			if err := verify(f.Type); err != nil {
				return err
			}
		}
	case KindOptional, KindNullable:
		if n.Inner == nil {
			return fmt.Errorf("%w: wrapper without inner type", ErrSyntax)
		}
		return verify(n.Inner)
	case KindRegex:
		if n.Pattern == nil {
			return fmt.Errorf("%w: regex node without pattern", ErrSyntax)
		}
	default:
		return fmt.Errorf("%w: unknown node kind %d", ErrSyntax, n.Kind)
	}
	return nil
}

// Validate evaluates the compiled validator against a value. It is total:
// invalid data produces issues on the result, never a panic or error.
//
// Per node the check order is fixed: type/shape first (a mismatch
// short-circuits that node's remaining checks), then structural constraints,
// then format checks delegated to the secure package. Independent checks
// accumulate; warnings never flip Valid.
func (c *Compiled) Validate(value any, opts *sg.Options) *sg.Result {
	if opts == nil {
		opts = sg.DefaultOptions()
	}

	result := sg.NewResult(value)
	ectx := &evalContext{result: result, strict: opts.StrictMode}
	normalized := evalNode(c.node, value, ectx)

	// Data carries normalizations only on the success path.
	if result.Valid {
		result.Data = normalized
	}
	return result
}

// evalContext tracks the walk position while a validator runs.
type evalContext struct {
	result   *sg.Result
	segments []string
	strict   bool
}

func (e *evalContext) push(seg string) {
	e.segments = append(e.segments, seg)
}

func (e *evalContext) pop() {
	e.segments = e.segments[:len(e.segments)-1]
}

func (e *evalContext) path() []string {
	if len(e.segments) == 0 {
		return nil
	}
	p := make([]string, len(e.segments))
	copy(p, e.segments)
	return p
}

func (e *evalContext) addIssue(b *sg.IssueBuilder) {
	issue := b.Build()
	issue.Path = e.path()
	e.result.AddIssue(issue)
}

// evalNode validates value against n, accumulating issues, and returns the
// (possibly normalized) value. Containers are rebuilt rather than mutated so
// the caller's input is never written to.
func evalNode(n *Node, value any, ectx *evalContext) any {
	switch n.Kind {
	case KindOptional:
		// Optional governs key presence only, which the enclosing object
		// handles; an explicit null at a present key still needs a nullable
		// mark.
		return evalNode(n.Inner, value, ectx)

	case KindNullable:
		if value == nil {
			return value
		}
		return evalNode(n.Inner, value, ectx)

	case KindLiteral:
		if !literalMatches(n.Literal, value) {
			ectx.addIssue(sg.Error(sg.KindTypeMismatch).
				Messagef("expected literal %q", n.Literal).
				Value(value))
		}
		return value

	case KindRegex:
		s, ok := value.(string)
		if !ok {
			ectx.addIssue(sg.Error(sg.KindTypeMismatch).
				Messagef("expected string, got %T", value).
				Value(value))
			return value
		}
		if utf8.RuneCountInString(s) > sg.DefaultMaxTextLength {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("length exceeds maximum %d", sg.DefaultMaxTextLength))
			return value
		}
		if !n.Pattern.MatchString(s) {
			ectx.addIssue(sg.Error(sg.KindPatternMismatch).
				Messagef("value does not match /%s/", n.Pattern).
				Value(s))
		}
		return value

	case KindUnion:
		for _, variant := range n.Variants {
			trial := sg.NewResult(value)
			tctx := &evalContext{result: trial, strict: ectx.strict}
			normalized := evalNode(variant, value, tctx)
			if !trial.HasErrors() {
				ectx.result.MergeAt(trial, ectx.segments...)
				return normalized
			}
		}
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("value matches none of %d alternatives (%s)", len(n.Variants), n.Signature()).
			Value(value))
		return value

	case KindArray:
		return evalArray(n, value, ectx)

	case KindObject:
		return evalObject(n, value, ectx)

	case KindPrimitive:
		return evalPrimitive(n, value, ectx)
	}
	return value
}

func evalArray(n *Node, value any, ectx *evalContext) any {
	items, ok := toSlice(value)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected array, got %T", value).
			Value(value))
		return value
	}

	// Element constraints run per element before the array's own size check.
	normalized := make([]any, len(items))
	for i, item := range items {
		ectx.push(strconv.Itoa(i))
		normalized[i] = evalNode(n.Elem, item, ectx)
		ectx.pop()
	}

	if n.Size != nil {
		count := decimal.NewFromInt(int64(len(items)))
		if n.Size.HasMin && count.LessThan(n.Size.Min) {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("array length %d below minimum %s", len(items), n.Size.Min))
		}
		if n.Size.HasMax && count.GreaterThan(n.Size.Max) {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("array length %d exceeds maximum %s", len(items), n.Size.Max))
		}
	}
	return normalized
}

func evalObject(n *Node, value any, ectx *evalContext) any {
	obj, ok := value.(map[string]any)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected object, got %T", value).
			Value(value))
		return value
	}

	// Undeclared keys pass through untouched.
	normalized := make(map[string]any, len(obj))
	for k, v := range obj {
		normalized[k] = v
	}

	for _, field := range n.Fields {
		fieldValue, present := obj[field.Name]
		if !present {
			if field.Type.IsOptional() {
				continue
			}
			ectx.push(field.Name)
			ectx.addIssue(sg.Error(sg.KindTypeMismatch).
				Messagef("required field %q missing", field.Name))
			ectx.pop()
			continue
		}
		ectx.push(field.Name)
		normalized[field.Name] = evalNode(field.Type, fieldValue, ectx)
		ectx.pop()
	}
	return normalized
}

func evalPrimitive(n *Node, value any, ectx *evalContext) any {
	switch n.Prim {
	case PrimAny:
		return value

	case PrimBool:
		if _, ok := value.(bool); !ok {
			ectx.addIssue(sg.Error(sg.KindTypeMismatch).
				Messagef("expected boolean, got %T", value).
				Value(value))
		}
		return value

	case PrimNumber, PrimInt:
		return evalNumber(n, value, ectx)

	case PrimString:
		return evalString(n, value, ectx)

	case PrimEmail:
		return evalFormat(value, ectx, func(v any) *sg.Result {
			return secure.ValidateEmail(v, nil)
		})

	case PrimIP:
		opts := sg.DefaultIPOptions()
		switch n.Arg {
		case "v4":
			opts.Version = sg.IPv4
		case "v6":
			opts.Version = sg.IPv6
		case "public":
			opts.AllowPrivate = false
			opts.AllowLoopback = false
		}
		return evalFormat(value, ectx, func(v any) *sg.Result {
			return secure.ValidateIP(v, opts)
		})

	case PrimJSON:
		opts := sg.DefaultJSONOptions()
		if n.Arg == "strict" || ectx.strict {
			opts.Mode = sg.JSONModeStrict
		}
		r := secure.ValidateJSON(value, opts)
		ectx.result.MergeAt(r, ectx.segments...)
		if r.Data != nil {
			return r.Data
		}
		return value

	case PrimUUID:
		return evalUUID(value, ectx)

	case PrimURL:
		return evalURL(n, value, ectx)

	case PrimDate:
		return evalDate(n, value, ectx)
	}
	return value
}

// evalFormat runs a secure-package check and folds its findings in at the
// current path, adopting any normalized data it produced.
func evalFormat(value any, ectx *evalContext, check func(any) *sg.Result) any {
	r := check(value)
	ectx.result.MergeAt(r, ectx.segments...)
	if r.Data != nil {
		return r.Data
	}
	return value
}

func evalString(n *Node, value any, ectx *evalContext) any {
	s, ok := value.(string)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value))
		return value
	}

	opts := sg.DefaultTextOptions()
	if c := n.Constraints; c != nil {
		if c.HasMin {
			opts.MinLength = int(c.Min.IntPart())
		}
		if c.HasMax {
			opts.MaxLength = int(c.Max.IntPart())
		}
	}

	r := secure.ValidateText(s, opts)
	ectx.result.MergeAt(r, ectx.segments...)

	out := s
	if rs, ok := r.Data.(string); ok {
		out = rs
	}

	// The pattern constraint only runs once the size guard has passed.
	if c := n.Constraints; c != nil && c.Pattern != nil &&
		utf8.RuneCountInString(out) <= opts.MaxLength {
		if !c.Pattern.MatchString(out) {
			ectx.addIssue(sg.Error(sg.KindPatternMismatch).
				Messagef("value does not match /%s/", c.Pattern).
				Value(out))
		}
	}
	return out
}

func evalNumber(n *Node, value any, ectx *evalContext) any {
	d, ok := toDecimal(value)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected number, got %T", value).
			Value(value))
		return value
	}
	if n.Prim == PrimInt && !d.IsInteger() {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected integer, got %s", d).
			Value(value))
		return value
	}

	if c := n.Constraints; c != nil {
		if c.HasMin && d.LessThan(c.Min) {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("value %s below minimum %s", d, c.Min))
		}
		if c.HasMax && d.GreaterThan(c.Max) {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("value %s exceeds maximum %s", d, c.Max))
		}
	}
	return value
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

func evalUUID(value any, ectx *evalContext) any {
	s, ok := value.(string)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value))
		return value
	}
	if !uuidPattern.MatchString(s) {
		ectx.addIssue(sg.Error(sg.KindInvalidFormat).
			Message("not a valid UUID").
			Value(s))
	}
	return value
}

func evalURL(n *Node, value any, ectx *evalContext) any {
	s, ok := value.(string)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected string, got %T", value).
			Value(value))
		return value
	}

	// Size guard before any parsing.
	if utf8.RuneCountInString(s) > sg.DefaultMaxTextLength {
		ectx.addIssue(sg.Error(sg.KindLengthViolation).
			Messagef("length exceeds maximum %d", sg.DefaultMaxTextLength))
		return value
	}
	if c := n.Constraints; c != nil {
		length := int64(utf8.RuneCountInString(s))
		if c.HasMin && length < c.Min.IntPart() {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("length %d below minimum %s", length, c.Min))
		}
		if c.HasMax && length > c.Max.IntPart() {
			ectx.addIssue(sg.Error(sg.KindLengthViolation).
				Messagef("length %d exceeds maximum %s", length, c.Max))
			return value
		}
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		ectx.addIssue(sg.Error(sg.KindInvalidFormat).
			Message("not a valid absolute URL").
			Value(s))
		return value
	}

	scheme := strings.ToLower(u.Scheme)
	switch n.Arg {
	case "https":
		if scheme != "https" {
			ectx.addIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("scheme %q where https required", scheme))
		}
	case "http", "", "dev":
		if scheme != "http" && scheme != "https" {
			ectx.addIssue(sg.Error(sg.KindSecurityViolation).
				Messagef("scheme %q not allowed", scheme).
				Value(s))
		}
	}

	// Outside dev mode a bare host like "localhost" is rejected.
	if n.Arg != "dev" {
		host := u.Hostname()
		if !strings.Contains(host, ".") && host != "" {
			ectx.addIssue(sg.Error(sg.KindInvalidFormat).
				Messagef("host %q has no domain suffix", host))
		}
	}
	return value
}

func evalDate(n *Node, value any, ectx *evalContext) any {
	if n.Arg == "unix" {
		d, ok := toDecimal(value)
		if !ok || !d.IsInteger() {
			ectx.addIssue(sg.Error(sg.KindInvalidFormat).
				Message("expected integer unix timestamp").
				Value(value))
		}
		return value
	}

	s, ok := value.(string)
	if !ok {
		ectx.addIssue(sg.Error(sg.KindTypeMismatch).
			Messagef("expected date string, got %T", value).
			Value(value))
		return value
	}
	if !parseableDate(s) {
		ectx.addIssue(sg.Error(sg.KindInvalidFormat).
			Message("not a valid ISO date").
			Value(s))
	}
	return value
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseableDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// --- conversion helpers ---

// literalMatches compares a value against a literal token with type
// awareness: a numeric token matches numbers only, "true"/"false" match
// booleans only, anything else matches the equal string. The string "2" does
// not satisfy the numeric literal 2.
func literalMatches(literal string, value any) bool {
	if numericPattern.MatchString(literal) {
		d, ok := toDecimal(value)
		if !ok {
			return false
		}
		want, err := decimal.NewFromString(literal)
		return err == nil && d.Equal(want)
	}
	if literal == "true" || literal == "false" {
		b, ok := value.(bool)
		return ok && strconv.FormatBool(b) == literal
	}
	s, ok := value.(string)
	return ok && s == literal
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromInt(int64(v)), true //nolint:gosec // range loss acceptable for validation
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Decimal{}, false
	}
}

func toSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	if _, ok := value.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
