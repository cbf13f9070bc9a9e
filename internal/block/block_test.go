package block

import (
	"testing"

	"github.com/hugodaniel/glslmin/internal/lexer"
	"github.com/hugodaniel/glslmin/internal/test"
	"github.com/hugodaniel/glslmin/internal/token"
)

func TestExtractScopeBalancesParens(t *testing.T) {
	// "( ( ) ) )" with opener '(' -> inner "( )", tail ")"
	toks := lexer.Tokenize("(()))")
	opener := toks[0].(*token.Paren)
	inner, tail, ok := ExtractScope(toks[1:], opener)
	if !ok {
		t.Fatal("expected ExtractScope to succeed")
	}
	test.AssertEqual(t, len(inner), 2)
	if len(tail) != 1 {
		t.Fatalf("tail = %v, want one trailing )", tail)
	}
	test.AssertEqual(t, tail[0].Format(), ")")
}

func TestParseUniformDeclared(t *testing.T) {
	toks := lexer.Tokenize("uniform float i_t;")
	src := ParseSource("test", StageGeneric, toks)
	if len(src.Children()) != 1 {
		t.Fatalf("got %d children, want 1", len(src.Children()))
	}
	u, ok := src.Children()[0].(*Uniform)
	if !ok {
		t.Fatalf("child is %T, want *Uniform", src.Children()[0])
	}
	test.AssertEqual(t, u.Name.Spelling(), "i_t")
	if len(u.DeclaredNames()) != 1 || u.DeclaredNames()[0] != u.Name {
		t.Fatal("DeclaredNames should contain exactly the uniform's Name")
	}
}

func TestParseFunctionAndScenario(t *testing.T) {
	src := "uniform float i_t;\nvoid main(){gl_FragColor=vec4(i_t);}"
	toks := lexer.Tokenize(src)
	tree := ParseSource("test", StageGeneric, toks)
	if len(tree.Children()) != 2 {
		t.Fatalf("got %d children, want 2 (uniform + function): %#v", len(tree.Children()), tree.Children())
	}
	fn, ok := tree.Children()[1].(*Function)
	if !ok {
		t.Fatalf("second child is %T, want *Function", tree.Children()[1])
	}
	test.AssertEqual(t, fn.Name.Spelling(), "main")
	if len(fn.Scope.Children()) != 1 {
		t.Fatalf("scope has %d statements, want 1", len(fn.Scope.Children()))
	}
	asg, ok := fn.Scope.Children()[0].(*Assignment)
	if !ok {
		t.Fatalf("scope statement is %T, want *Assignment", fn.Scope.Children()[0])
	}
	used := asg.UsedNames()
	found := false
	for _, n := range used {
		if n.Spelling() == "i_t" {
			found = true
		}
	}
	if !found {
		t.Fatal("assignment RHS should use i_t")
	}
}

func TestFlattenPreorder(t *testing.T) {
	toks := lexer.Tokenize("void main(){float x=1.;x=2.;}")
	tree := ParseSource("test", StageGeneric, toks)
	all := Flatten(tree)
	if len(all) < 4 {
		t.Fatalf("Flatten returned %d blocks, want at least 4: %#v", len(all), all)
	}
	if all[0] != Block(tree) {
		t.Fatal("Flatten[0] must be the root itself")
	}
}

func TestUnlinkDetachesFromParent(t *testing.T) {
	toks := lexer.Tokenize("void main(){float x=1.;}")
	tree := ParseSource("test", StageGeneric, toks)
	fn := tree.Children()[0].(*Function)
	decl := fn.Scope.Children()[0]
	Unlink(decl)
	if len(fn.Scope.Children()) != 0 {
		t.Fatalf("scope still has %d children after Unlink", len(fn.Scope.Children()))
	}
	if decl.Parent() != nil {
		t.Fatal("Unlink should clear the child's parent pointer")
	}
}
