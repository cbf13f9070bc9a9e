package rewrite

import (
	"strings"

	"github.com/hugodaniel/glslmin/internal/alphabet"
	"github.com/hugodaniel/glslmin/internal/analyzer"
	"github.com/hugodaniel/glslmin/internal/block"
	"github.com/hugodaniel/glslmin/internal/token"
)

// ----------------------------------------------------------------------------
// expandRecursive / collapseRecursive
// ----------------------------------------------------------------------------

// expandRecursive normalizes every multi-name Declaration in b's subtree
// into one Declaration per name, preparing the tree for the conflict and
// merge-group analysis the later passes run (a declared name's identity
// is easiest to reason about one-per-block).
func expandRecursive(b block.Block) {
	for _, c := range append([]block.Block{}, b.Children()...) {
		if d, ok := c.(*block.Declaration); ok && len(d.Names) > 1 {
			repls := make([]block.Block, len(d.Names))
			for i, n := range d.Names {
				repls[i] = &block.Declaration{Type: d.Type, Names: []block.DeclName{n}}
			}
			block.ReplaceChild(b, d, repls)
		}
		expandRecursive(c)
	}
}

// collapseRecursive is expandRecursive's inverse: adjacent sibling
// Declaration blocks that still share a type are re-merged into one,
// yielding the compact final text. It returns the number of merges
// performed (the "combines" counter).
func collapseRecursive(b block.Block) int {
	combines := 0
	children := append([]block.Block{}, b.Children()...)

	i := 0
	for i < len(children) {
		d, ok := children[i].(*block.Declaration)
		if !ok {
			i++
			continue
		}
		j := i + 1
		merged := d
		for j < len(children) {
			d2, ok := children[j].(*block.Declaration)
			if !ok || d2.Type.Format() != merged.Type.Format() {
				break
			}
			merged = &block.Declaration{Type: merged.Type, Names: append(append([]block.DeclName{}, merged.Names...), d2.Names...)}
			combines++
			j++
		}
		if j > i+1 {
			block.ReplaceChild(b, children[i], []block.Block{merged})
			for k := i + 1; k < j; k++ {
				block.Unlink(children[k])
			}
		}
		i = j
	}

	for _, c := range b.Children() {
		combines += collapseRecursive(c)
	}
	return combines
}

// ----------------------------------------------------------------------------
// token-slice access (for simplify, swizzle-select, and inline substitution)
// ----------------------------------------------------------------------------

// collectTokenSlices returns every raw token stream a block owns
// directly (not its children's): declaration initializers, an
// assignment's RHS, a control condition, a raw statement's tokens.
func collectTokenSlices(b block.Block) [][]token.Token {
	switch v := b.(type) {
	case *block.Declaration:
		var out [][]token.Token
		for _, n := range v.Names {
			if n.Init != nil {
				out = append(out, n.Init)
			}
		}
		return out
	case *block.Assignment:
		return [][]token.Token{v.RHS}
	case *block.ControlBlock:
		if v.Condition != nil {
			return [][]token.Token{v.Condition}
		}
	case *block.Raw:
		return [][]token.Token{v.Tokens}
	}
	return nil
}

// ----------------------------------------------------------------------------
// inlinePass
// ----------------------------------------------------------------------------

func isInlineEligible(spelling string) bool {
	return strings.HasPrefix(spelling, "i_")
}

func otherNames(g *Group, decl *token.Name) []*token.Name {
	var out []*token.Name
	for _, n := range g.Names {
		if n != decl {
			out = append(out, n)
		}
	}
	return out
}

// spliceToken replaces every occurrence of target within toks with
// replacement's tokens, returning the rebuilt slice and how many
// substitutions were made.
func spliceToken(toks []token.Token, target *token.Name, replacement []token.Token) ([]token.Token, int) {
	var out []token.Token
	n := 0
	for _, t := range toks {
		if nm, ok := t.(*token.Name); ok && nm == target {
			out = append(out, replacement...)
			n++
			continue
		}
		out = append(out, t)
	}
	return out, n
}

// substituteUses walks root's subtree replacing every use of target
// with replacement, in place.
func substituteUses(root block.Block, target *token.Name, replacement []token.Token) int {
	total := 0
	for _, b := range block.Flatten(root) {
		switch v := b.(type) {
		case *block.Declaration:
			for i := range v.Names {
				rep, n := spliceToken(v.Names[i].Init, target, replacement)
				if n > 0 {
					v.Names[i].Init = rep
					total += n
				}
			}
		case *block.Assignment:
			rep, n := spliceToken(v.RHS, target, replacement)
			if n > 0 {
				v.RHS = rep
				total += n
			}
		case *block.ControlBlock:
			rep, n := spliceToken(v.Condition, target, replacement)
			if n > 0 {
				v.Condition = rep
				total += n
			}
		case *block.Raw:
			rep, n := spliceToken(v.Tokens, target, replacement)
			if n > 0 {
				v.Tokens = rep
				total += n
			}
		}
	}
	return total
}

// inlinePass repeatedly finds merge groups anchored at an
// inline-eligible binding (spelling matching ^i_.*) with no inline
// conflict, substitutes the binding at every downstream use, and
// unlinks the now-dead declaration. One substitution per round: groups
// go stale the moment the tree changes, so each successful inline
// recomputes them before the next attempt.
func (db *Database) inlinePass(maxInlines int) (int, error) {
	total := 0
	for {
		if maxInlines >= 0 && total >= maxInlines {
			return total, nil
		}
		groups, err := buildMergeGroups(db.Sources)
		if err != nil {
			return total, err
		}

		didInline := false
		for _, g := range groups {
			if db.inlineGroup(g) {
				total++
				didInline = true
				break
			}
		}
		if !didInline {
			return total, nil
		}
	}
}

// inlineGroup attempts one inline for a group, reporting whether the
// tree changed.
func (db *Database) inlineGroup(g *Group) bool {
	switch decl := g.Anchor.(type) {
	case *block.Uniform:
		// An i_-prefixed uniform is marked by authoring convention as a
		// binding the embedding layer substitutes; the declaration
		// itself is dead weight and drops out, uses keep its spelling.
		if decl.Name.IsLocked() || !isInlineEligible(decl.Name.Spelling()) {
			return false
		}
		block.Unlink(decl)
		return true

	case *block.Declaration:
		if len(decl.Names) != 1 {
			return false
		}
		name := decl.Names[0].Name
		if name.IsLocked() || !isInlineEligible(name.Spelling()) {
			return false
		}
		init := decl.Names[0].Init
		if init == nil {
			return false
		}
		uses := otherNames(g, name)
		if len(uses) == 0 {
			return false
		}
		parent := analyzer.FindParentScope(decl)
		if parent == nil {
			return false
		}
		if analyzer.HasInlineConflict(parent, decl, uses) {
			return false
		}
		// A reassignment of the binding downstream makes it no longer a
		// one-shot value; substitution can only touch reads.
		if hasAssignmentTo(parent, uses) {
			return false
		}

		replaced := 0
		for _, u := range uses {
			for _, src := range db.Sources {
				replaced += substituteUses(src, u, init)
			}
		}
		if replaced == 0 {
			return false
		}
		block.Unlink(decl)
		return true
	}
	return false
}

// hasAssignmentTo reports whether any assignment in scope targets one
// of the given name occurrences.
func hasAssignmentTo(parent block.Block, uses []*token.Name) bool {
	set := map[*token.Name]bool{}
	for _, n := range uses {
		set[n] = true
	}
	for _, b := range block.Flatten(parent) {
		if asg, ok := b.(*block.Assignment); ok && set[asg.LHS] {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// simplifyPass
// ----------------------------------------------------------------------------

// stripRedundantParens removes a pair of parens that wrap a token
// stream's entirety, e.g. turning `(a+b)` into `a+b` when the whole
// stream is exactly that one parenthesized group.
func stripRedundantParens(toks []token.Token) ([]token.Token, bool) {
	if len(toks) < 2 {
		return toks, false
	}
	open, ok := toks[0].(*token.Paren)
	if !ok || !open.IsOpen() {
		return toks, false
	}
	inner, tail, ok := block.ExtractScope(toks[1:], open)
	if !ok || len(tail) != 0 {
		return toks, false
	}
	return inner, true
}

func simplifyRecursive(b block.Block, cap int, count *int) {
	underCap := func() bool { return cap < 0 || *count < cap }

	switch v := b.(type) {
	case *block.Assignment:
		if underCap() {
			if inner, changed := stripRedundantParens(v.RHS); changed {
				v.RHS = inner
				*count++
			}
		}
	case *block.Declaration:
		for i := range v.Names {
			if !underCap() {
				break
			}
			if v.Names[i].Init == nil {
				continue
			}
			if inner, changed := stripRedundantParens(v.Names[i].Init); changed {
				v.Names[i].Init = inner
				*count++
			}
		}
	case *block.ControlBlock:
		if underCap() && v.Condition != nil {
			if inner, changed := stripRedundantParens(v.Condition); changed {
				v.Condition = inner
				*count++
			}
		}
	}

	for _, c := range b.Children() {
		simplifyRecursive(c, cap, count)
	}
}

// simplifyPass runs the local rewrites: redundant-paren removal here,
// while trivial float-literal folding (5.0 -> 5., 0.5 -> .5) happens
// structurally in token.Float's canonical formatting and needs no pass
// of its own.
func (db *Database) simplifyPass(maxSimplifys int) int {
	count := 0
	for _, src := range db.Sources {
		simplifyRecursive(src, maxSimplifys, &count)
	}
	return count
}

// ----------------------------------------------------------------------------
// selectSwizzle
// ----------------------------------------------------------------------------

func remapSwizzle(s *token.Swizzle, family byte) {
	srcFam := token.SwizzleFamilyChars(s.Family)
	dstFam := token.SwizzleFamilyChars(family)
	newChars := make([]byte, len(s.Chars))
	for i := 0; i < len(s.Chars); i++ {
		idx := strings.IndexByte(srcFam, s.Chars[i])
		newChars[i] = dstFam[idx]
	}
	s.Chars = string(newChars)
	s.Family = family
}

// selectSwizzle picks whichever family (xyzw, stpq, rgba, in that
// tie-break order) is currently most common by letter frequency across
// all source text, then rewrites every swizzle token to it.
func (db *Database) selectSwizzle() {
	freq := alphabet.New()
	for _, src := range db.Sources {
		freq.Scan(src.Format(), 1)
	}

	families := token.Families()
	best := families[0]
	var bestScore int64 = -1
	for _, fam := range families {
		var score int64
		for i := 0; i < len(fam); i++ {
			score += freq.CountOf(fam[i])
		}
		if score > bestScore {
			bestScore = score
			best = fam
		}
	}
	chosen := best[0]

	for _, src := range db.Sources {
		for _, b := range block.Flatten(src) {
			for _, toks := range collectTokenSlices(b) {
				for _, t := range toks {
					if sw, ok := t.(*token.Swizzle); ok && sw.Family != chosen {
						remapSwizzle(sw, chosen)
					}
				}
			}
		}
	}
}

// ----------------------------------------------------------------------------
// renamePass
// ----------------------------------------------------------------------------

// renameMembers locks every member of a merged interface group, one
// letter per member, the same letter on every stage's side of the
// interface. Member names live in their own namespace, so letters are
// handed out straight off the frequency table, most-used member first,
// with no scope conflict check — only uniqueness within the interface
// matters.
func (db *Database) renameMembers(g *Group, freq *alphabet.Freq, budget int) int {
	if len(g.Listing) == 0 {
		return 0
	}

	// Pair members across the listing by index; mergeInoutGroups has
	// already verified the member lists agree.
	type memberGroup struct {
		names []*token.Name
		uses  int
	}
	var members []memberGroup
	for i := range g.Listing[0].Members {
		var names []*token.Name
		for _, st := range g.Listing {
			names = append(names, st.Members[i].Name)
		}
		if names[0].IsLocked() {
			continue
		}
		members = append(members, memberGroup{names: names, uses: len(names) + db.countAccessUses(names)})
	}

	// Most-accessed member gets the hottest letter.
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j].uses > members[j-1].uses; j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}

	taken := map[string]bool{}
	count := 0
	for _, m := range members {
		if budget >= 0 && count >= budget {
			break
		}
		candidate := alphabet.InventName(freq, func(c string) bool { return taken[c] })
		taken[candidate] = true
		for _, n := range m.names {
			n.Lock(candidate)
		}
		count++
	}
	return count
}

// countAccessUses counts the `.member` access tokens across every
// source that resolved to one of the given declaring names.
func (db *Database) countAccessUses(names []*token.Name) int {
	set := map[*token.Name]bool{}
	for _, n := range names {
		set[n] = true
	}
	count := 0
	for _, src := range db.Sources {
		for _, b := range block.Flatten(src) {
			for _, toks := range collectTokenSlices(b) {
				for _, t := range toks {
					if acc, ok := t.(*token.Access); ok && acc.Name != nil && set[acc.Name] {
						count++
					}
				}
			}
		}
	}
	return count
}

// renameBlock locks the interface's type name. For a listing spanning
// several stages the pick deliberately re-runs per element rather than
// sharing one spelling: block type names are not part of the linked
// interface contract, so each stage's side picks the best letter its
// own scope allows.
func (db *Database) renameBlock(g *Group, freq *alphabet.Freq) int {
	renamed := 0
	for _, st := range g.Listing {
		if st.TypeName.IsLocked() {
			continue
		}
		scope := analyzer.FindParentScope(st)
		if scope == nil {
			scope = st.Parent()
		}
		candidate := alphabet.InventName(freq, func(c string) bool {
			return analyzer.HasNameConflict(scope, st, c, db.Sources...)
		})
		st.TypeName.Lock(candidate)
		renamed = 1
	}
	return renamed
}

// renamePass locks every merge group, largest first, to the
// highest-frequency non-conflicting spelling, then runs the member and
// block-type renames for interface groups.
func (db *Database) renamePass(maxRenames int) (int, error) {
	groups, err := buildMergeGroups(db.Sources)
	if err != nil {
		return 0, err
	}
	sortGroupsBySizeDesc(groups)

	// Scanned once up front from the pre-rename source text: a
	// frequency snapshot taken before any lock, not recomputed as the
	// groups below consume letters from it, matching how the original
	// minifier allocates its alphabet.
	freq := alphabet.New()
	for _, src := range db.Sources {
		freq.Scan(src.Format(), 1)
	}

	count := 0
	for _, g := range groups {
		if maxRenames >= 0 && count >= maxRenames {
			break
		}
		if len(g.Names) == 0 || g.Names[0].IsLocked() {
			continue
		}
		parent := analyzer.FindParentScope(g.Anchor)
		if parent == nil {
			continue
		}
		var peers []*block.Source
		if _, ok := parent.(*block.Source); ok {
			peers = db.Sources
		}
		candidate := alphabet.InventName(freq, func(c string) bool {
			return analyzer.HasNameConflict(parent, g.Anchor, c, peers...)
		})
		for _, n := range g.Names {
			n.Lock(candidate)
		}
		count++
	}

	// Member and block-type renames run after every ordinary group has
	// settled, and count toward the same cap.
	for _, g := range groups {
		if len(g.Listing) == 0 {
			continue
		}
		budget := -1
		if maxRenames >= 0 {
			budget = maxRenames - count
			if budget <= 0 {
				break
			}
		}
		count += db.renameMembers(g, freq, budget)
		if maxRenames < 0 || count < maxRenames {
			count += db.renameBlock(g, freq)
		}
	}
	return count, nil
}

func sortGroupsBySizeDesc(groups []*Group) {
	// insertion sort: group counts are small and this keeps ties in the
	// original (document) order, matching a stable sort's guarantee
	// without pulling in sort.Slice for a handful of elements.
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && len(groups[j].Names) > len(groups[j-1].Names); j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}
}
