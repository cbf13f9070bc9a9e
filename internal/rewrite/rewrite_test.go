package rewrite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/lexer"
)

func parse(name string, stage block.Stage, src string) *block.Source {
	return block.ParseSource(name, stage, lexer.Tokenize(src))
}

func formatAll(db *Database) string {
	var out strings.Builder
	for _, s := range db.Sources {
		out.WriteString(s.Format())
	}
	return out.String()
}

// A single-use i_-prefixed uniform inlines away entirely: the
// declaration is dead weight the embedding layer substitutes for.
func TestScenarioAInlinesSingleUseUniform(t *testing.T) {
	src := parse("a", block.StageGeneric, "uniform float i_t;\nvoid main(){gl_FragColor=vec4(i_t);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	out := formatAll(db)
	if strings.Contains(out, "uniform") {
		t.Fatalf("expected uniform declaration to be inlined away, got: %q", out)
	}
	if !strings.Contains(out, "gl_FragColor") {
		t.Fatalf("expected gl_FragColor to survive, got: %q", out)
	}
}

// A reserved function name survives rename untouched.
func TestScenarioEReservedNameSurvives(t *testing.T) {
	src := parse("a", block.StageGeneric, "void main(){gl_FragColor=vec4(normalize(gl_FragCoord.xyz),1.);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	out := formatAll(db)
	if !strings.Contains(out, "normalize") {
		t.Fatalf("normalize must survive rename, got: %q", out)
	}
	if !strings.Contains(out, "gl_FragCoord") {
		t.Fatalf("gl_FragCoord must survive rename, got: %q", out)
	}
}

// No reserved word is ever renamed.
func TestNoReservedWordRenamed(t *testing.T) {
	src := parse("a", block.StageGeneric, "void main(){gl_FragColor=vec4(normalize(vec3(1.,2.,3.)),1.);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	out := formatAll(db)
	for _, reserved := range []string{"main", "gl_FragColor", "normalize", "vec4", "vec3"} {
		if !strings.Contains(out, reserved) {
			t.Errorf("reserved spelling %q missing from output %q", reserved, out)
		}
	}
}

// mode=none is a pure round trip (format(parse(S)) == S).
func TestModeNoneRoundTrips(t *testing.T) {
	original := "uniform float i_t;"
	src := parse("a", block.StageGeneric, original)
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "none"}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	if got := formatAll(db); got != original {
		t.Fatalf("mode=none output = %q, want %q", got, original)
	}
}

// Crunch is idempotent (crunch twice == crunch once).
func TestCrunchIsIdempotent(t *testing.T) {
	src := parse("a", block.StageGeneric, "void main(){float i_a=1.;gl_FragColor=vec4(i_a);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("first Crunch error: %v", err)
	}
	once := formatAll(db)

	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("second Crunch error: %v", err)
	}
	twice := formatAll(db)

	if once != twice {
		t.Fatalf("crunch is not idempotent: once=%q twice=%q", once, twice)
	}
}

// A varying shared across a vertex and a fragment source ends with
// identical spelling on both sides.
func TestCrossStageVaryingRenamesIdentically(t *testing.T) {
	vert := parse("v", block.StageVertex, "out vec3 i_v;\nvoid main(){i_v=vec3(1.,2.,3.);}")
	frag := parse("f", block.StageFragment, "in vec3 i_v;\nvoid main(){gl_FragColor=vec4(i_v,1.);}")
	db := NewDatabase([]*block.Source{vert, frag})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}

	vertOut := vert.Format()
	fragOut := frag.Format()

	vertDecl := vert.Children()[0].(*block.Inout).Name.Format()
	fragDecl := frag.Children()[0].(*block.Inout).Name.Format()
	if vertDecl != fragDecl {
		t.Fatalf("varying renamed inconsistently across stages: vertex=%q fragment=%q (full outputs: %q / %q)",
			vertDecl, fragDecl, vertOut, fragOut)
	}
}

// Renaming an InoutStruct member also renames every
// `.member` access reachable from it, since Access.Name is resolved to
// the same *token.Name the declaration locks.
func TestInoutStructMemberAccessRenamesConsistently(t *testing.T) {
	src := parse("a", block.StageFragment,
		"in VertOut { vec3 normal; vec2 uv; } vOut;\nvoid main(){gl_FragColor=vec4(vOut.uv,0.,1.);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}

	st := src.Children()[0].(*block.InoutStruct)
	var uvName string
	for _, m := range st.Members {
		if m.Name.Spelling() == "uv" {
			uvName = m.Name.Format()
		}
	}
	if uvName == "" {
		t.Fatalf("could not find renamed uv member in %v", st.Members)
	}
	if uvName == "uv" {
		t.Fatalf("member %q was not renamed", uvName)
	}

	out := formatAll(db)
	if !strings.Contains(out, "."+uvName) {
		t.Fatalf("access site did not follow member rename %q, got: %q", uvName, out)
	}
	if strings.Contains(out, ".uv") {
		t.Fatalf("stale .uv access survived rename, got: %q", out)
	}
}

// A member access outside any member list the accessed instance's type
// actually declares is a structural inconsistency, not a recoverable
// parse miss, and must abort the crunch.
func TestMemberAccessOutsideMemberListIsInvariantViolation(t *testing.T) {
	src := parse("a", block.StageFragment,
		"in VertOut { vec3 normal; vec2 uv; } vOut;\nvoid main(){gl_FragColor=vec4(vOut.missing,0.,1.);}")
	db := NewDatabase([]*block.Source{src})
	_, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1})
	if err == nil {
		t.Fatalf("expected an InvariantError, got nil")
	}
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvariantError, got %T: %v", err, err)
	}
}

// Two InoutStruct anchors that key together as the same cross-stage
// varying (same type name) but declare different member lists describe
// different interfaces under one name — an invariant violation, not a
// silent merge.
func TestDisagreeingInoutStructMembersIsInvariantViolation(t *testing.T) {
	vert := parse("v", block.StageVertex,
		"out VertOut { vec3 normal; vec2 uv; } vOut;\nvoid main(){vOut.uv=vec2(1.,2.);}")
	frag := parse("f", block.StageFragment,
		"in VertOut { vec3 normal; } vOut;\nvoid main(){gl_FragColor=vec4(vOut.normal,1.);}")
	db := NewDatabase([]*block.Source{vert, frag})
	_, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1})
	if err == nil {
		t.Fatalf("expected an InvariantError, got nil")
	}
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvariantError, got %T: %v", err, err)
	}
}

// Whichever swizzle family wins the letter-frequency vote is applied
// everywhere; here xyzw dominates and the rgb swizzles are rewritten.
func TestSwizzleFamilyUnifies(t *testing.T) {
	src := parse("a", block.StageGeneric, "void main(){vec4 v=vec4(1.);v.xyz=v.xyz+v.xyz;v.rgb=v.rgb;}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	out := formatAll(db)
	if strings.Contains(out, ".rgb") {
		t.Fatalf("rgb swizzle survived family selection, got: %q", out)
	}
	if strings.Count(out, ".xyz") != 5 {
		t.Fatalf("expected 5 .xyz swizzles after rewrite, got: %q", out)
	}
}

// With more identifiers than single letters, the letter inventor kicks
// in and produces a digit-suffixed name that clashes with nothing.
func TestRenameInventsNameWhenLettersExhausted(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("void main(){")
	for i := 0; i < 53; i++ {
		fmt.Fprintf(&sb, "float n%d=1.;", i)
	}
	sb.WriteString("}")

	src := parse("a", block.StageGeneric, sb.String())
	db := NewDatabase([]*block.Source{src})
	stats, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1})
	if err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	if stats.Renames != 53 {
		t.Fatalf("Renames = %d, want 53", stats.Renames)
	}
	out := formatAll(db)
	if !regexp.MustCompile(`[A-Za-z]0=1\.`).MatchString(out) {
		t.Fatalf("expected an invented digit-suffixed name, got: %q", out)
	}
	if strings.Contains(out, "n52") {
		t.Fatalf("original spelling n52 survived rename, got: %q", out)
	}

	// Every declared spelling is unique after rename.
	spellings := map[string]bool{}
	for _, b := range block.Flatten(src) {
		for _, n := range b.DeclaredNames() {
			if n.Spelling() == "main" {
				continue
			}
			if spellings[n.Format()] {
				t.Fatalf("spelling %q assigned twice", n.Format())
			}
			spellings[n.Format()] = true
		}
	}
}

// A loop counter living in raw for-condition tokens is never renamed,
// so no enclosing-scope identifier may take its spelling.
func TestLoopCounterSpellingStaysReserved(t *testing.T) {
	src := parse("a", block.StageGeneric,
		"uniform float u;void main(){float a=u;for(int i=0;i<4;++i){a+=u;}gl_FragColor=vec4(a);}")
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}

	out := formatAll(db)
	if !strings.Contains(out, "for(int i=0;i<4;++i)") {
		t.Fatalf("loop header was not preserved, got: %q", out)
	}
	uni := src.Children()[0].(*block.Uniform)
	if uni.Name.Format() == "i" {
		t.Fatalf("uniform renamed onto the loop counter's spelling: %q", out)
	}
	fn := src.Children()[1].(*block.Function)
	decl := fn.Scope.Children()[0].(*block.Declaration)
	if decl.Names[0].Name.Format() == "i" {
		t.Fatalf("local renamed onto the loop counter's spelling: %q", out)
	}
}

// Snapshot the full pipeline's output for a slightly larger shader,
// guarding against accidental regressions in pass ordering or output
// shape.
func TestCrunchSnapshot(t *testing.T) {
	src := parse("a", block.StageGeneric, `uniform float i_t;
void main(){
float i_a=i_t*2.;
gl_FragColor=vec4(i_a,i_a,i_a,1.);
}`)
	db := NewDatabase([]*block.Source{src})
	if _, err := db.Crunch(Options{Mode: "full", MaxInlines: -1, MaxRenames: -1, MaxSimplifys: -1}); err != nil {
		t.Fatalf("Crunch error: %v", err)
	}
	snaps.MatchSnapshot(t, "crunch_output", formatAll(db))
}
