// Package block implements the block-structured parser and the in-memory
// block tree it builds: a restricted but practical subset of GLSL
// (uniforms, inout declarations, structs, functions, declarations,
// assignments, control-flow blocks, and bare scopes), each block
// variant knowing its own declared and used names.
package block

import "github.com/hugodaniel/glslmin/internal/token"

// Stage identifies a Source block's shader stage.
type Stage uint8

const (
	StageGeneric Stage = iota
	StageVertex
	StageFragment
	StageGeometry
)

// Compatible reports whether two stages may share cross-source name
// collection: a generic source is compatible with every typed stage,
// and a stage is always compatible with itself.
func (s Stage) Compatible(other Stage) bool {
	return s == StageGeneric || other == StageGeneric || s == other
}

// Block is the common interface every block variant satisfies: parent/
// child links and declared/used name reporting. Concrete fields live in
// Base, embedded by every variant.
type Block interface {
	Parent() Block
	setParent(Block)
	Children() []Block
	// DeclaredNames returns the names this block introduces.
	DeclaredNames() []*token.Name
	// UsedNames returns every name occurrence in this block's own
	// payload (not its children's), excluding its declared set.
	UsedNames() []*token.Name
	// Format renders this block's canonical textual form.
	Format() string
}

// Base carries the fields shared by every block variant: parent/child
// links. It is not itself a Block; variants embed it and implement the
// name-reporting and Format methods themselves.
type Base struct {
	parent   Block
	children []Block
}

func (b *Base) Parent() Block     { return b.parent }
func (b *Base) setParent(p Block) { b.parent = p }
func (b *Base) Children() []Block { return b.children }

func (b *Base) removeChild(c Block) {
	for i, ch := range b.children {
		if ch == c {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

// Attach links child under parent, recording the back-pointer.
func Attach(parent, child Block) {
	child.setParent(parent)
	parentBase(parent).children = append(parentBase(parent).children, child)
}

// parentBase extracts the embedded *Base from any Block via a type
// switch over the concrete variants, since Go has no common field
// access through an interface.
func parentBase(b Block) *Base {
	switch v := b.(type) {
	case *Source:
		return &v.Base
	case *Uniform:
		return &v.Base
	case *Inout:
		return &v.Base
	case *InoutStruct:
		return &v.Base
	case *Struct:
		return &v.Base
	case *Function:
		return &v.Base
	case *Declaration:
		return &v.Base
	case *Assignment:
		return &v.Base
	case *ControlBlock:
		return &v.Base
	case *Scope:
		return &v.Base
	case *Directive:
		return &v.Base
	case *Raw:
		return &v.Base
	}
	panic("block: unknown variant in parentBase")
}

// ReplaceChild swaps old (a direct child of parent) for replacements, in
// place, preserving surrounding sibling order — used by expandRecursive
// to split a multi-name Declaration into one-per-name siblings, and by
// collapseRecursive to re-merge them.
func ReplaceChild(parent Block, old Block, replacements []Block) {
	base := parentBase(parent)
	for i, c := range base.children {
		if c != old {
			continue
		}
		next := append([]Block{}, base.children[:i]...)
		for _, r := range replacements {
			r.setParent(parent)
			next = append(next, r)
		}
		next = append(next, base.children[i+1:]...)
		base.children = next
		old.setParent(nil)
		return
	}
}

// Unlink removes child from its parent's child list and clears its
// parent pointer — used by the inline pass to detach a declaration once
// its downstream uses have been substituted.
func Unlink(child Block) {
	p := child.Parent()
	if p == nil {
		return
	}
	parentBase(p).removeChild(child)
	parentBase(child).parent = nil
}

// Flatten yields b and every descendant, in preorder.
func Flatten(b Block) []Block {
	out := []Block{b}
	for _, c := range b.Children() {
		out = append(out, Flatten(c)...)
	}
	return out
}

// ----------------------------------------------------------------------------
// Source
// ----------------------------------------------------------------------------

// Source is a top-level per-file block: the root of one shader's tree.
// Per invariant 5, every block's parent chain ends at a Source, and a
// Source has no parent of its own.
type Source struct {
	Base
	Name  string
	Stage Stage
}

func (s *Source) DeclaredNames() []*token.Name { return nil }
func (s *Source) UsedNames() []*token.Name     { return nil }

func (s *Source) Format() string {
	out := ""
	for _, c := range s.Children() {
		out = appendSmart(out, c.Format())
	}
	return out
}

// ----------------------------------------------------------------------------
// Uniform
// ----------------------------------------------------------------------------

// Uniform is `[layout(...)] uniform <type> <name>[<size>];`.
type Uniform struct {
	Base
	Layout string // raw layout qualifier text, or ""
	Type   *token.Type
	Name   *token.Name
	Size   *token.Int // array size, or nil
}

func (u *Uniform) DeclaredNames() []*token.Name { return []*token.Name{u.Name} }
func (u *Uniform) UsedNames() []*token.Name     { return nil }

func (u *Uniform) Format() string {
	out := ""
	if u.Layout != "" {
		out += "layout(" + u.Layout + ")"
	}
	out += "uniform " + u.Type.Format() + " " + u.Name.Format()
	if u.Size != nil {
		out += "[" + u.Size.Format() + "]"
	}
	return out + ";"
}

// ----------------------------------------------------------------------------
// Inout / InoutStruct
// ----------------------------------------------------------------------------

// Inout is `in|out|inout <type> <name>[<size>];` — a per-stage interface
// variable, the ordinary (non-struct) cross-stage varying anchor.
type Inout struct {
	Base
	Direction token.Direction
	Type      *token.Type
	Name      *token.Name
	Size      *token.Int
}

func (io *Inout) DeclaredNames() []*token.Name { return []*token.Name{io.Name} }
func (io *Inout) UsedNames() []*token.Name     { return nil }

func (io *Inout) Format() string {
	out := io.Direction.String() + " " + io.Type.Format() + " " + io.Name.Format()
	if io.Size != nil {
		out += "[" + io.Size.Format() + "]"
	}
	return out + ";"
}

// InoutStruct is the distinguished variant carrying a named member list:
// `in|out <TypeName> { <type> <member>; ... } <name>;`. It is the
// cross-stage varying anchor when the interface is struct-shaped, and
// per invariant 4 its member list must be complete — every use of a
// member name anywhere in the tree is reachable from it.
type InoutStruct struct {
	Base
	Direction  token.Direction
	TypeName   *token.Name
	Members    []*Uniform // reusing Uniform's {Type, Name, Size} shape for members
	MemberName *token.Name
}

func (s *InoutStruct) DeclaredNames() []*token.Name {
	names := make([]*token.Name, 0, len(s.Members)+1)
	names = append(names, s.TypeName)
	if s.MemberName != nil {
		names = append(names, s.MemberName)
	}
	for _, m := range s.Members {
		names = append(names, m.Name)
	}
	return names
}
func (s *InoutStruct) UsedNames() []*token.Name { return nil }

func (s *InoutStruct) Format() string {
	out := s.Direction.String() + " " + s.TypeName.Format() + "{"
	for _, m := range s.Members {
		out += m.Type.Format() + " " + m.Name.Format()
		if m.Size != nil {
			out += "[" + m.Size.Format() + "]"
		}
		out += ";"
	}
	out += "}"
	if s.MemberName != nil {
		out += s.MemberName.Format()
	}
	return out + ";"
}

// ----------------------------------------------------------------------------
// Struct
// ----------------------------------------------------------------------------

// Struct is `struct <TypeName> { <type> <member>; ... };`.
type Struct struct {
	Base
	TypeName *token.Name
	Members  []*Uniform
}

func (s *Struct) DeclaredNames() []*token.Name {
	names := make([]*token.Name, 0, len(s.Members)+1)
	names = append(names, s.TypeName)
	for _, m := range s.Members {
		names = append(names, m.Name)
	}
	return names
}
func (s *Struct) UsedNames() []*token.Name { return nil }

func (s *Struct) Format() string {
	out := "struct " + s.TypeName.Format() + "{"
	for _, m := range s.Members {
		out += m.Type.Format() + " " + m.Name.Format() + ";"
	}
	return out + "};"
}

// ----------------------------------------------------------------------------
// Function
// ----------------------------------------------------------------------------

// Param is one function parameter.
type Param struct {
	Type *token.Type
	Name *token.Name
}

// Function is `<type> <name>(<params>) <scope>`.
type Function struct {
	Base
	ReturnType *token.Type
	Name       *token.Name
	Params     []Param
	Scope      *Scope
}

func (f *Function) DeclaredNames() []*token.Name {
	names := []*token.Name{f.Name}
	for _, p := range f.Params {
		names = append(names, p.Name)
	}
	return names
}
func (f *Function) UsedNames() []*token.Name { return nil }

func (f *Function) Format() string {
	out := f.ReturnType.Format() + " " + f.Name.Format() + "("
	for i, p := range f.Params {
		if i > 0 {
			out += ","
		}
		out += p.Type.Format() + " " + p.Name.Format()
	}
	out += ")"
	if f.Scope != nil {
		out += f.Scope.Format()
	}
	return out
}

// ----------------------------------------------------------------------------
// Declaration
// ----------------------------------------------------------------------------

// DeclName is one name in a (possibly multi-name) declaration, with its
// optional initializer token stream.
type DeclName struct {
	Name *token.Name
	Init []token.Token // nil if uninitialized
}

// Declaration is `<type> <name>[=<init>] [, <name>[=<init>]]*;`. After
// expandRecursive every Declaration holds exactly one name; collapseRecursive
// re-merges same-type siblings at the end of the pipeline.
type Declaration struct {
	Base
	Type  *token.Type
	Names []DeclName
}

func (d *Declaration) DeclaredNames() []*token.Name {
	names := make([]*token.Name, len(d.Names))
	for i, n := range d.Names {
		names[i] = n.Name
	}
	return names
}

func (d *Declaration) UsedNames() []*token.Name {
	var used []*token.Name
	for _, n := range d.Names {
		used = append(used, usedNamesIn(n.Init)...)
	}
	return used
}

func (d *Declaration) Format() string {
	out := d.Type.Format() + " "
	for i, n := range d.Names {
		if i > 0 {
			out += ","
		}
		out += n.Name.Format()
		if n.Init != nil {
			out += "=" + formatTokens(n.Init)
		}
	}
	return out + ";"
}

// ----------------------------------------------------------------------------
// Assignment
// ----------------------------------------------------------------------------

// Assignment is `<lhs><op><rhs...>;` — the LHS is a bare name (a
// statement whose target carries a swizzle or member suffix is not
// parsed as an Assignment and stays Raw), the operator one of
// =,+=,-=,*=,/=, and the RHS an arbitrary token stream.
type Assignment struct {
	Base
	LHS *token.Name
	Op  *token.Operator
	RHS []token.Token
}

func (a *Assignment) DeclaredNames() []*token.Name { return nil }

func (a *Assignment) UsedNames() []*token.Name {
	used := []*token.Name{a.LHS}
	return append(used, usedNamesIn(a.RHS)...)
}

func (a *Assignment) Format() string {
	return a.LHS.Format() + a.Op.Format() + formatTokens(a.RHS) + ";"
}

// ----------------------------------------------------------------------------
// Control
// ----------------------------------------------------------------------------

// ControlBlock is `<keyword>[(<condition>)] <scope-or-statement>`, e.g.
// `if(...){...}`, `for(...){...}`, `while(...){...}`, `return <expr>;`,
// or bare `discard;`.
type ControlBlock struct {
	Base
	Keyword   *token.Control
	Condition []token.Token // nil when the keyword takes none (discard)
	Body      Block         // *Scope, or another Block for a bare inlined statement
}

func (c *ControlBlock) DeclaredNames() []*token.Name { return nil }

func (c *ControlBlock) UsedNames() []*token.Name {
	return usedNamesIn(c.Condition)
}

func (c *ControlBlock) Format() string {
	out := c.Keyword.Format()
	if c.Condition != nil {
		if c.Keyword.Keyword == "return" {
			out = appendSmart(out, formatTokens(c.Condition))
		} else {
			out += "(" + formatTokens(c.Condition) + ")"
		}
	}
	if c.Body != nil {
		out = appendSmart(out, c.Body.Format())
	} else {
		out += ";"
	}
	return out
}

// ----------------------------------------------------------------------------
// Scope
// ----------------------------------------------------------------------------

// Scope is a `{ ... }` container of statement blocks.
type Scope struct {
	Base
}

func (s *Scope) DeclaredNames() []*token.Name { return nil }
func (s *Scope) UsedNames() []*token.Name     { return nil }

func (s *Scope) Format() string {
	out := "{"
	for _, c := range s.Children() {
		out = appendSmart(out, c.Format())
	}
	return out + "}"
}

// ----------------------------------------------------------------------------
// Directive
// ----------------------------------------------------------------------------

// Directive is a preprocessor line passed through opaque; the minifier
// neither invokes the preprocessor nor interprets what it left behind.
type Directive struct {
	Base
	Token *token.Directive
}

func (d *Directive) DeclaredNames() []*token.Name { return nil }
func (d *Directive) UsedNames() []*token.Name     { return nil }
func (d *Directive) Format() string               { return d.Token.Format() }

// ----------------------------------------------------------------------------
// Raw
// ----------------------------------------------------------------------------

// Raw carries a statement the block parsers could not recognize,
// preserved verbatim per the "parse miss never aborts" error policy.
type Raw struct {
	Base
	Tokens []token.Token
}

func (r *Raw) DeclaredNames() []*token.Name { return nil }
func (r *Raw) UsedNames() []*token.Name     { return usedNamesIn(r.Tokens) }
func (r *Raw) Format() string               { return formatTokens(r.Tokens) }

// ----------------------------------------------------------------------------
// shared helpers
// ----------------------------------------------------------------------------

func isIdentChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// appendSmart concatenates next onto out, inserting the one space GLSL
// still needs when two identifier-like spellings would otherwise fuse.
func appendSmart(out, next string) string {
	if next == "" {
		return out
	}
	if out != "" && isIdentChar(out[len(out)-1]) && isIdentChar(next[0]) {
		return out + " " + next
	}
	return out + next
}

func formatTokens(toks []token.Token) string {
	out := ""
	for _, t := range toks {
		out = appendSmart(out, t.Format())
	}
	return out
}

// usedNamesIn collects every *token.Name occurrence in a raw token
// stream (an assignment RHS, a declaration initializer, a control
// condition).
func usedNamesIn(toks []token.Token) []*token.Name {
	var out []*token.Name
	for _, t := range toks {
		if n, ok := t.(*token.Name); ok {
			out = append(out, n)
		}
	}
	return out
}
