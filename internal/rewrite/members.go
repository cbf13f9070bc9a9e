package rewrite

import (
	"fmt"

	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/token"
)

// resolveMemberAccesses links every `.member` Access token that follows
// a known InoutStruct instance back to that member's declaring Name, so
// a later rename lock on the member (renameMembers) is also reflected
// at every use site. It is a structural link, not a full
// expression-type system: only an access on an identifier whose
// declared type names a known InoutStruct, or whose spelling is the
// instance name a known InoutStruct declares, is resolved; anything else (a
// function-call result, an unrecognized instance) is left as a literal
// access.
func resolveMemberAccesses(sources []*block.Source) error {
	for _, src := range sources {
		// Scoped per source: the instance variable an access hangs off
		// of (e.g. a vertex shader's own "vOut") is declared, and typed,
		// within that one file, so its struct lookup must not cross into
		// a same-named interface declared in a peer stage.
		structs := map[string]*block.InoutStruct{}
		for _, b := range block.Flatten(src) {
			if s, ok := b.(*block.InoutStruct); ok {
				structs[s.TypeName.Spelling()] = s
			}
		}
		if len(structs) == 0 {
			continue
		}
		for _, b := range block.Flatten(src) {
			for _, toks := range collectTokenSlices(b) {
				if err := resolveAccessesIn(toks, structs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolveAccessesIn resolves every Access token in toks that immediately
// follows a Name whose declared type names a known InoutStruct, or whose
// spelling is such an InoutStruct's instance name. A
// member whose spelling happens to sit inside one swizzle family (say
// "st") tokenizes as a Swizzle; when it hangs off a struct instance it
// is demoted back to a member access here, out of reach of swizzle
// rewriting.
func resolveAccessesIn(toks []token.Token, structs map[string]*block.InoutStruct) error {
	for i := 1; i < len(toks); i++ {
		var spelling string
		switch t := toks[i].(type) {
		case *token.Access:
			if t.Name != nil {
				continue
			}
			spelling = t.Member
		case *token.Swizzle:
			spelling = t.Chars
		default:
			continue
		}
		name, ok := toks[i-1].(*token.Name)
		if !ok {
			continue
		}
		// A use-site Name is its own token with no type of its own, so
		// besides a typed name, an identifier spelled like a known
		// InoutStruct's instance name also resolves to that struct.
		var st *block.InoutStruct
		if typ := name.Type(); typ != nil {
			st = structs[typ.Kind]
		}
		if st == nil {
			for _, s := range structs {
				if s.MemberName != nil && s.MemberName.Spelling() == name.Spelling() {
					st = s
				}
			}
		}
		if st == nil {
			continue
		}
		member := findMember(st, spelling)
		if member == nil {
			if _, wasSwizzle := toks[i].(*token.Swizzle); wasSwizzle {
				// Not one of the members; leave the swizzle alone.
				continue
			}
			return &InvariantError{
				Entity: fmt.Sprintf("%s.%s", name.Spelling(), spelling),
				Message: fmt.Sprintf(
					"member access %q on %s instance %q is outside %s's member list",
					spelling, st.TypeName.Spelling(), name.Spelling(), st.TypeName.Spelling()),
			}
		}
		toks[i] = &token.Access{Member: spelling, Name: member}
	}
	return nil
}

func findMember(st *block.InoutStruct, spelling string) *token.Name {
	for _, m := range st.Members {
		if m.Name.Spelling() == spelling {
			return m.Name
		}
	}
	return nil
}
