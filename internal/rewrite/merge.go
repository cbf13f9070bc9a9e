package rewrite

import (
	"fmt"

	"github.com/hugodaniel/glslmin/internal/analyzer"
	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/token"
)

// Group is a merge group: every *token.Name occurrence that must share
// one spelling because they refer to the same binding, anchored at the
// block that introduces it (a declaration, a function, an inout/struct
// interface). Cross-stage varyings fold two or more stages' groups into
// one here, which is how renaming stays consistent across them.
type Group struct {
	Anchor block.Block
	Names  []*token.Name
	// Listing holds every InoutStruct block merged into the group, one
	// per shader stage (a single entry when only one stage declares the
	// interface). Member and block-type renames run over it.
	Listing []*block.InoutStruct
}

// buildMergeGroups collects every declared-name occurrence across every
// source into a group with its reachable uses, then folds cross-stage
// inout/struct interfaces and same-name function overloads together.
// Group membership de-duplicates by physical identity of *token.Name:
// an occurrence already placed in a group never joins a second one.
// Uses join a declaration's group by spelling within its scope, while a
// second declaration of the same spelling anchors its own group. Returns an InvariantError
// if two inout/struct interfaces that key together as the same
// cross-stage varying structurally disagree.
func buildMergeGroups(sources []*block.Source) ([]*Group, error) {
	var groups []*Group
	seen := map[*token.Name]bool{}

	for _, src := range sources {
		for _, b := range block.Flatten(src) {
			for _, decl := range groupableNames(b) {
				if decl == nil || decl.IsLocked() || seen[decl] {
					continue
				}
				g := collectGroup(src, sources, b, decl, seen)
				groups = append(groups, g)
			}
		}
	}

	groups, err := mergeInoutGroups(groups)
	if err != nil {
		return nil, err
	}
	groups = mergeFunctionGroups(groups)
	return groups, nil
}

// groupableNames returns the declared names of b that anchor ordinary
// merge groups. Struct-shaped interfaces keep only their instance name
// here: member names are locked through the member-access machinery
// (renameMembers) and the type name through renameBlock, so placing
// them in ordinary groups would rename the whole interface to a single
// spelling. An instance-less interface block falls back to its type
// name so cross-stage merging still finds it.
func groupableNames(b block.Block) []*token.Name {
	switch v := b.(type) {
	case *block.InoutStruct:
		if v.MemberName != nil {
			return []*token.Name{v.MemberName}
		}
		return []*token.Name{v.TypeName}
	case *block.Struct:
		return []*token.Name{v.TypeName}
	}
	return b.DeclaredNames()
}

// collectGroup gathers decl plus every reachable use of the same
// spelling, from the enclosing scope outward (including stage-
// compatible peer sources), marking every collected *token.Name seen so
// it is never placed into a second group.
func collectGroup(src *block.Source, all []*block.Source, declBlock block.Block, decl *token.Name, seen map[*token.Name]bool) *Group {
	g := &Group{Anchor: declBlock, Names: []*token.Name{decl}}
	seen[decl] = true

	parent := analyzer.FindParentScope(declBlock)
	if parent == nil {
		parent = src
	}

	universe := block.Flatten(parent)
	if _, isSrc := parent.(*block.Source); isSrc {
		for _, peer := range all {
			if peer == src || !src.Stage.Compatible(peer.Stage) {
				continue
			}
			universe = append(universe, block.Flatten(peer)...)
		}
	}

	for _, b := range universe {
		for _, u := range b.UsedNames() {
			if seen[u] || u.Spelling() != decl.Spelling() {
				continue
			}
			seen[u] = true
			g.Names = append(g.Names, u)
		}
	}
	return g
}

// mergeInoutGroups folds together groups anchored at structurally
// equivalent Inout/InoutStruct blocks across stage-compatible sources —
// same direction-complementary pair (an out in one stage, an in in
// another) with the same type and name — so both sides rename
// identically. Two anchors that key together but disagree structurally
// (incompatible directions, or, for a struct interface, a differing
// member list) is an invariant violation: the key means "the same
// cross-stage varying", and if the candidates aren't actually the same
// interface, the program is in a state the minifier has no safe
// rewrite for.
func mergeInoutGroups(groups []*Group) ([]*Group, error) {
	var out []*Group
	used := make([]bool, len(groups))

	keyOf := func(g *Group) (string, bool) {
		switch a := g.Anchor.(type) {
		case *block.Inout:
			return "io:" + a.Type.Format() + ":" + a.Name.Spelling(), true
		case *block.InoutStruct:
			return "st:" + a.TypeName.Spelling(), true
		}
		return "", false
	}

	for i, g := range groups {
		if used[i] {
			continue
		}
		key, ok := keyOf(g)
		if !ok {
			out = append(out, g)
			used[i] = true
			continue
		}
		merged := g
		var listing []*block.InoutStruct
		if st, ok := g.Anchor.(*block.InoutStruct); ok {
			listing = append(listing, st)
		}
		for j := i + 1; j < len(groups); j++ {
			if used[j] {
				continue
			}
			otherKey, ok := keyOf(groups[j])
			if !ok || otherKey != key {
				continue
			}
			if err := checkInoutEndpointsAgree(g.Anchor, groups[j].Anchor); err != nil {
				return nil, err
			}
			merged = &Group{Anchor: merged.Anchor, Names: append(append([]*token.Name{}, merged.Names...), groups[j].Names...)}
			if st, ok := groups[j].Anchor.(*block.InoutStruct); ok {
				listing = append(listing, st)
			}
			used[j] = true
		}
		merged.Listing = listing
		used[i] = true
		out = append(out, merged)
	}
	return out, nil
}

// checkInoutEndpointsAgree validates that two anchors sharing an
// inout/struct merge key actually describe the same interface: matching
// directions (identical, or a complementary in/out pair) and, for a
// struct interface, an identical member list (count, spelling, and type,
// in order).
func checkInoutEndpointsAgree(a, b block.Block) error {
	switch av := a.(type) {
	case *block.Inout:
		bv := b.(*block.Inout)
		if !directionsAgree(av.Direction, bv.Direction) {
			return &InvariantError{
				Entity:  av.Name.Spelling(),
				Message: fmt.Sprintf("inout %q merges %s with %s, not a valid in/out pair", av.Name.Spelling(), av.Direction, bv.Direction),
			}
		}
	case *block.InoutStruct:
		bv := b.(*block.InoutStruct)
		if !directionsAgree(av.Direction, bv.Direction) {
			return &InvariantError{
				Entity:  av.TypeName.Spelling(),
				Message: fmt.Sprintf("struct interface %q merges %s with %s, not a valid in/out pair", av.TypeName.Spelling(), av.Direction, bv.Direction),
			}
		}
		if !memberListsAgree(av.Members, bv.Members) {
			return &InvariantError{
				Entity:  av.TypeName.Spelling(),
				Message: fmt.Sprintf("struct interface %q has disagreeing member lists across stages", av.TypeName.Spelling()),
			}
		}
	}
	return nil
}

func directionsAgree(a, b token.Direction) bool {
	if a == b {
		return true
	}
	isInOrOut := func(d token.Direction) bool { return d == token.DirIn || d == token.DirOut }
	return isInOrOut(a) && isInOrOut(b) && a != b
}

func memberListsAgree(a, b []*block.Uniform) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name.Spelling() != b[i].Name.Spelling() || a[i].Type.Format() != b[i].Type.Format() {
			return false
		}
	}
	return true
}

// mergeFunctionGroups folds together groups anchored at same-named
// Function blocks across different sources (overloads sharing an
// interface), keyed purely by function name.
func mergeFunctionGroups(groups []*Group) []*Group {
	var out []*Group
	used := make([]bool, len(groups))

	for i, g := range groups {
		if used[i] {
			continue
		}
		fn, ok := g.Anchor.(*block.Function)
		if !ok {
			out = append(out, g)
			used[i] = true
			continue
		}
		merged := g
		for j := i + 1; j < len(groups); j++ {
			if used[j] {
				continue
			}
			otherFn, ok := groups[j].Anchor.(*block.Function)
			if !ok || otherFn.Name.Spelling() != fn.Name.Spelling() {
				continue
			}
			merged = &Group{Anchor: merged.Anchor, Names: append(append([]*token.Name{}, merged.Names...), groups[j].Names...)}
			used[j] = true
		}
		used[i] = true
		out = append(out, merged)
	}
	return out
}
