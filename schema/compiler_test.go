package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sg "github.com/schemaguard/validator"
)

func validate(t *testing.T, expr string, value any) *sg.Result {
	t.Helper()
	c, err := CompileString(expr)
	require.NoError(t, err, expr)
	return c.Validate(value, nil)
}

func TestCompileStringMemoization(t *testing.T) {
	a, err := CompileString("{id: uuid}")
	require.NoError(t, err)
	b, err := CompileString("{id: uuid}")
	require.NoError(t, err)
	assert.Same(t, a, b, "identical expressions should share one validator")

	// Errors are memoized too
	_, err1 := CompileString("bogus(")
	_, err2 := CompileString("bogus(")
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
}

func TestValidateString(t *testing.T) {
	r := validate(t, "string(3,10)", "hello")
	assert.True(t, r.Valid)

	r = validate(t, "string(3,10)", "hi")
	assert.False(t, r.Valid)

	r = validate(t, "string(3,10)", 42)
	require.False(t, r.Valid)
	assert.Equal(t, sg.KindTypeMismatch, r.Errors()[0].Code)
}

func TestValidateStringPattern(t *testing.T) {
	assert.True(t, validate(t, "string(/^[a-z]+$/)", "abc").Valid)

	r := validate(t, "string(/^[a-z]+$/)", "ABC")
	require.False(t, r.Valid)
	assert.Equal(t, sg.KindPatternMismatch, r.Errors()[0].Code)

	// Oversized input produces only length errors; the pattern never runs.
	big := strings.Repeat("A", 20)
	r = validate(t, "string(1,5)", big)
	require.False(t, r.Valid)
	for _, issue := range r.Errors() {
		assert.Equal(t, sg.KindLengthViolation, issue.Code)
	}
}

func TestValidateNumbers(t *testing.T) {
	assert.True(t, validate(t, "number(0,100)", 50.0).Valid)
	assert.False(t, validate(t, "number(0,100)", 150.0).Valid)
	assert.False(t, validate(t, "number", "50").Valid)

	// int rejects fractional values
	assert.True(t, validate(t, "int", 3.0).Valid)
	assert.False(t, validate(t, "int", 3.5).Valid)

	// range violations carry the length-violation code
	r := validate(t, "int(10,)", 5)
	require.False(t, r.Valid)
	assert.Equal(t, sg.KindLengthViolation, r.Errors()[0].Code)
}

func TestValidateBool(t *testing.T) {
	assert.True(t, validate(t, "bool", true).Valid)
	assert.False(t, validate(t, "bool", "true").Valid)
}

func TestValidateLiteralsAndUnions(t *testing.T) {
	assert.True(t, validate(t, "active|inactive", "active").Valid)
	assert.False(t, validate(t, "active|inactive", "dormant").Valid)

	// Numeric literals match numbers, not their string forms
	assert.True(t, validate(t, "1|2|3", 2.0).Valid)
	assert.True(t, validate(t, "1|2|3", 2).Valid)
	assert.False(t, validate(t, "1|2|3", "2").Valid)

	// Mixed type unions try variants in order
	assert.True(t, validate(t, "string|number", 7.5).Valid)
	assert.True(t, validate(t, "string|number", "seven").Valid)
	assert.False(t, validate(t, "string|number", true).Valid)

	// A failed union reports one error, not one per variant
	r := validate(t, "int|bool", "x")
	assert.Equal(t, 1, r.ErrorCount())
}

func TestValidateArrays(t *testing.T) {
	r := validate(t, "string[]", []any{"a", "b"})
	assert.True(t, r.Valid)

	r = validate(t, "string[]", []any{"a", 1})
	require.False(t, r.Valid)
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, []string{"1"}, r.Errors()[0].Path)

	// Element errors and the size error both accumulate
	r = validate(t, "int[](3,)", []any{1.0, "x"})
	require.False(t, r.Valid)
	assert.Equal(t, 2, r.ErrorCount())

	// Typed slices are accepted
	assert.True(t, validate(t, "string[]", []string{"a", "b"}).Valid)

	r = validate(t, "string[]", "not-an-array")
	require.False(t, r.Valid)
	assert.Equal(t, sg.KindTypeMismatch, r.Errors()[0].Code)
}

func TestValidateObjects(t *testing.T) {
	r := validate(t, "{name: string(1,80), age: int(0,150)?}",
		map[string]any{"name": "Ada"})
	assert.True(t, r.Valid, "optional field may be absent")

	r = validate(t, "{name: string}", map[string]any{})
	require.False(t, r.Valid)
	assert.Equal(t, []string{"name"}, r.Errors()[0].Path)

	// Nested paths accumulate
	r = validate(t, "{user: {email: email}}",
		map[string]any{"user": map[string]any{"email": "not-an-email"}})
	require.False(t, r.Valid)
	assert.Equal(t, []string{"user", "email"}, r.Errors()[0].Path)

	// Undeclared keys pass through
	r = validate(t, "{a: string}", map[string]any{"a": "x", "extra": 1})
	assert.True(t, r.Valid)
	data := r.Data.(map[string]any)
	assert.Equal(t, 1, data["extra"])
}

func TestValidateOptionalAndNullable(t *testing.T) {
	// "?" governs key presence only; an explicit null needs the nullable
	// mark of "??".
	assert.False(t, validate(t, "string?", nil).Valid)
	assert.True(t, validate(t, "string??", nil).Valid)
	assert.True(t, validate(t, "string?", "x").Valid)
	assert.False(t, validate(t, "string?", 5).Valid)

	obj := MustCompileString("{a: string?, b: string??}")
	assert.True(t, obj.Validate(map[string]any{}, nil).Valid, "optional keys may be absent")

	r := obj.Validate(map[string]any{"a": nil}, nil)
	require.False(t, r.Valid, "optional alone does not admit explicit null")
	assert.Equal(t, []string{"a"}, r.Errors()[0].Path)

	assert.True(t, obj.Validate(map[string]any{"b": nil}, nil).Valid)
}

func TestValidateUUID(t *testing.T) {
	assert.True(t, validate(t, "uuid", "9f1d6f8a-44b0-4c1e-8f3a-2b7a9c0d1e2f").Valid)

	// Group lengths are exact: 8-4-4-4-12.
	assert.False(t, validate(t, "uuid", "9f1d6f8a-44b0-4c1e-8f3aa-2b7a9c0d1e2f").Valid)
	assert.False(t, validate(t, "uuid", "9f1d6f8a-44b0-4c1e-8f3-2b7a9c0d1e2f").Valid)

	r := validate(t, "uuid", "not-a-uuid")
	require.False(t, r.Valid)
	assert.Equal(t, sg.KindInvalidFormat, r.Errors()[0].Code)
}

func TestValidateURL(t *testing.T) {
	assert.True(t, validate(t, "url", "https://example.com/path").Valid)
	assert.True(t, validate(t, "url", "http://example.com").Valid)
	assert.False(t, validate(t, "url", "example.com").Valid)
	assert.False(t, validate(t, "url", "javascript:alert(1)").Valid)

	assert.False(t, validate(t, "url.https", "http://example.com").Valid)
	assert.True(t, validate(t, "url.https", "https://example.com").Valid)

	// localhost only passes in dev mode
	assert.False(t, validate(t, "url", "http://localhost:8080").Valid)
	assert.True(t, validate(t, "url.dev", "http://localhost:8080").Valid)
}

func TestValidateDate(t *testing.T) {
	assert.True(t, validate(t, "date", "2026-08-31").Valid)
	assert.True(t, validate(t, "date", "2026-08-31T10:30:00Z").Valid)
	assert.False(t, validate(t, "date", "31/08/2026").Valid)

	assert.True(t, validate(t, "date.unix", 1756600000.0).Valid)
	assert.False(t, validate(t, "date.unix", 17566.5).Valid)
}

func TestValidateNormalizationOnSuccessOnly(t *testing.T) {
	// email lower-casing propagates to Data on success
	r := validate(t, "email", "User@Example.COM")
	require.True(t, r.Valid)
	assert.Equal(t, "user@example.com", r.Data)

	// failures keep the original input
	r = validate(t, "email", "not-an-email")
	require.False(t, r.Valid)
	assert.Equal(t, "not-an-email", r.Data)
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"email": "User@Example.COM"}
	r := validate(t, "{email: email}", in)
	require.True(t, r.Valid)

	assert.Equal(t, "User@Example.COM", in["email"], "caller's map must not change")
	out := r.Data.(map[string]any)
	assert.Equal(t, "user@example.com", out["email"])
}

func TestValidateTotality(t *testing.T) {
	// Hostile inputs produce issues, never panics.
	c := MustCompileString("{a: {b: string[]}}")
	for _, v := range []any{
		nil,
		42,
		"string",
		[]any{1, 2},
		map[string]any{"a": map[string]any{"b": "not-array"}},
		map[string]any{"a": []any{nil}},
		make(chan int),
	} {
		r := c.Validate(v, nil)
		assert.NotNil(t, r)
	}
}

func TestCompileVerifiesHandBuiltTrees(t *testing.T) {
	_, err := Compile(nil)
	assert.Error(t, err)

	_, err = Compile(&Node{Kind: KindArray})
	assert.Error(t, err)

	_, err = Compile(&Node{Kind: KindUnion, Variants: []*Node{{Kind: KindPrimitive, Prim: PrimString}}})
	assert.Error(t, err)

	_, err = Compile(&Node{Kind: KindPrimitive, Prim: "mystery"})
	assert.Error(t, err)

	_, err = Compile(&Node{Kind: KindObject, Fields: []Field{
		{Name: "a", Type: &Node{Kind: KindPrimitive, Prim: PrimString}},
		{Name: "a", Type: &Node{Kind: KindPrimitive, Prim: PrimString}},
	}})
	assert.ErrorIs(t, err, ErrDuplicateField)
}
