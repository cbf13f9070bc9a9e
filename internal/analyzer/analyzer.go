// Package analyzer answers the name/scope queries the rewrite engine
// needs before it is safe to inline or rename an identifier: the
// enclosing scope a conflict check should run over, whether a candidate
// spelling collides with anything already declared or used in that
// scope, and whether substituting a declaration's initializer at every
// downstream use would change program behavior (the copy-propagation
// hazard).
package analyzer

import (
	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/token"
)

// FindParentScope ascends from b until it reaches the block whose
// flattened subtree is the right universe for a conflict check: a
// Source, a Function or ControlBlock directly, or — when a Scope's
// immediate parent is a Function or ControlBlock — that parent (the
// Scope itself is transparent; loop counters and function-body locals
// are scoped to the construct that owns them, not the braces).
func FindParentScope(b block.Block) block.Block {
	cur := b
	for cur != nil {
		switch v := cur.(type) {
		case *block.Source:
			return v
		case *block.Function:
			return v
		case *block.ControlBlock:
			return v
		case *block.Scope:
			if p := v.Parent(); p != nil {
				switch p.(type) {
				case *block.Function, *block.ControlBlock:
					return p
				}
			}
		}
		cur = cur.Parent()
	}
	return nil
}

// HasNameConflict reports whether candidate would collide with an
// existing binding if target were renamed to it, searching parent's
// entire flattened subtree (plus, when parent is a Source, every
// stage-compatible peer source — the cross-stage varying rule):
//
//   - any block anywhere in scope that already locks a declared name to
//     candidate is always a conflict (a declaration anywhere in an
//     enclosing scope forbids the rename, per GLSL's scoping rules);
//     an unlocked declaration is not one — it has its own rename coming
//     and will see this lock when it does;
//   - a block whose locked *used* name formats as candidate is only a
//     conflict once document order has passed target (a use only
//     matters from the rename point onward);
//   - an *unlocked* use whose spelling has no declaration anywhere in
//     scope (a loop counter living in a raw condition, an identifier
//     whose binding was dropped) will never be renamed away, so it
//     reserves its spelling from the target onward too.
func HasNameConflict(parent block.Block, target block.Block, candidate string, peers ...*block.Source) bool {
	universe := scopeUniverse(parent, peers)

	declaredSpellings := map[string]bool{}
	for _, b := range universe {
		for _, n := range b.DeclaredNames() {
			if !n.IsLocked() {
				declaredSpellings[n.Spelling()] = true
			}
		}
	}

	for _, b := range universe {
		for _, n := range b.DeclaredNames() {
			if n.IsLocked() && n.Format() == candidate {
				return true
			}
		}
	}

	reached := false
	for _, b := range universe {
		if b == target {
			reached = true
			continue
		}
		if !reached {
			continue
		}
		for _, n := range b.UsedNames() {
			if n.IsLocked() && n.Format() == candidate {
				return true
			}
			if !n.IsLocked() && n.Spelling() == candidate && !declaredSpellings[candidate] {
				return true
			}
		}
	}
	return false
}

// scopeUniverse flattens parent and, if parent is a Source, every
// stage-compatible peer's flattened tree as well.
func scopeUniverse(parent block.Block, peers []*block.Source) []block.Block {
	universe := block.Flatten(parent)
	src, ok := parent.(*block.Source)
	if !ok {
		return universe
	}
	for _, peer := range peers {
		if peer == src {
			continue
		}
		if src.Stage.Compatible(peer.Stage) {
			universe = append(universe, block.Flatten(peer)...)
		}
	}
	return universe
}

// HasInlineConflict reports the classical copy-propagation hazard: would
// substituting decl's initializer at every downstream use of uses be
// unsafe because an intervening assignment writes a name the initializer
// reads before every remaining downstream use has consumed the current
// value?
//
// parent is decl's enclosing scope (as found by FindParentScope); decl
// must appear in block.Flatten(parent); uses are the downstream
// occurrences of the declared name that inlining would replace.
func HasInlineConflict(parent block.Block, decl block.Block, uses []*token.Name) bool {
	reads := map[string]bool{}
	for _, n := range decl.UsedNames() {
		reads[n.Spelling()] = true
	}
	if len(reads) == 0 || len(uses) == 0 {
		return false
	}

	remaining := len(uses)
	isUse := map[*token.Name]bool{}
	for _, n := range uses {
		isUse[n] = true
	}

	reached := false
	for _, b := range block.Flatten(parent) {
		if b == decl {
			reached = true
			continue
		}
		if !reached {
			continue
		}
		for _, u := range b.UsedNames() {
			if isUse[u] {
				remaining--
			}
		}
		if remaining <= 0 {
			return false
		}
		if asg, ok := b.(*block.Assignment); ok && reads[asg.LHS.Spelling()] {
			return true
		}
	}
	return false
}
