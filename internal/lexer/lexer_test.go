package lexer

import (
	"strings"
	"testing"

	"github.com/hugodaniel/glslmin/internal/test"
	"github.com/hugodaniel/glslmin/internal/token"
)

func formatAll(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Format()
	}
	return out
}

func expectTokenize(t *testing.T, source string, want []string) {
	t.Helper()
	got := formatAll(Tokenize(source))
	test.AssertEqualWithDiff(t, strings.Join(got, "\n"), strings.Join(want, "\n"))
}

func TestTokenizeFloats(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   []string
	}{
		{"leading dot", ".5", []string{".5"}},
		{"trailing dot", "5.", []string{"5."}},
		{"explicit zero frac", "5.0", []string{"5."}},
		{"plain int", "5", []string{"5"}},
		{"unsigned int", "5u", []string{"5u"}},
		{"zero both sides", "0.", []string{"0."}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			expectTokenize(t, c.source, c.want)
		})
	}
}

func TestTokenizeOperatorAbsorption(t *testing.T) {
	cases := []struct {
		source string
		want   []string
	}{
		{"==", []string{"=="}},
		{"<=", []string{"<="}},
		{">=", []string{">="}},
		{"!=", []string{"!="}},
		{"&&", []string{"&&"}},
		{"||", []string{"||"}},
		{"++", []string{"++"}},
		{"--", []string{"--"}},
		{"+=", []string{"+="}},
		{"-=", []string{"-="}},
		{"*=", []string{"*="}},
		{"/=", []string{"/="}},
		{"===", []string{"==", "="}},
	}
	for _, c := range cases {
		t.Run(c.source, func(t *testing.T) {
			expectTokenize(t, c.source, c.want)
		})
	}
}

func TestTokenizeSwizzleVsAccess(t *testing.T) {
	toks := Tokenize("a.xyz")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %v", len(toks), formatAll(toks))
	}
	if _, ok := toks[1].(*token.Swizzle); !ok {
		t.Fatalf("toks[1] = %T, want *token.Swizzle", toks[1])
	}

	toks = Tokenize("a.member")
	if _, ok := toks[1].(*token.Access); !ok {
		t.Fatalf("toks[1] = %T, want *token.Access", toks[1])
	}
}

func TestTokenizeControlTwoKeyword(t *testing.T) {
	toks := Tokenize("else if")
	if len(toks) != 1 {
		t.Fatalf("got %d tokens, want 1: %v", len(toks), formatAll(toks))
	}
	c, ok := toks[0].(*token.Control)
	if !ok {
		t.Fatalf("toks[0] = %T, want *token.Control", toks[0])
	}
	test.AssertEqual(t, c.Format(), "else if")
}

func TestTokenizeTypePrecision(t *testing.T) {
	toks := Tokenize("highp float x;")
	ty, ok := toks[0].(*token.Type)
	if !ok {
		t.Fatalf("toks[0] = %T, want *token.Type", toks[0])
	}
	test.AssertEqual(t, ty.Format(), "highp float")
}

func TestTokenizeReservedNameLocked(t *testing.T) {
	toks := Tokenize("normalize(x)")
	nm, ok := toks[0].(*token.Name)
	if !ok {
		t.Fatalf("toks[0] = %T, want *token.Name", toks[0])
	}
	if !nm.IsLocked() {
		t.Fatalf("normalize should be pre-locked")
	}
	if nm.Format() != "normalize" {
		t.Fatalf("Format() = %q, want normalize", nm.Format())
	}
}

func TestTokenizeDirectiveLineStaysWhole(t *testing.T) {
	toks := Tokenize("#version 330 core\nuniform float u;")
	d, ok := toks[0].(*token.Directive)
	if !ok {
		t.Fatalf("toks[0] = %T, want *token.Directive", toks[0])
	}
	test.AssertEqual(t, d.Text, "#version 330 core")
	if len(toks) < 4 {
		t.Fatalf("tokens after the directive were lost: %v", formatAll(toks))
	}
}

func TestSplitDelimiters(t *testing.T) {
	got := Split("a.b,c;d:e=f")
	want := []string{"a", ".", "b", ",", "c", ";", "d", ":", "e", "=", "f"}
	test.AssertEqualWithDiff(t, strings.Join(got, "\n"), strings.Join(want, "\n"))
}
