package block

import "github.com/hugodaniel/glslmin/internal/token"

// ParseSource builds a Source block tree from a token stream, trying
// each statement-level block parser in turn and falling back to a raw,
// verbatim statement on universal failure — per the "parse miss never
// aborts" policy, unrecognized code survives unchanged in the output.
func ParseSource(name string, stage Stage, tokens []token.Token) *Source {
	src := &Source{Name: name, Stage: stage}
	rest := tokens
	for len(rest) > 0 {
		child, tail, ok := parseStatement(rest)
		if ok {
			Attach(src, child)
			rest = tail
			continue
		}
		raw, tail := consumeRawStatement(rest)
		Attach(src, raw)
		rest = tail
	}
	return src
}

// parseStatement tries every top-level block parser in a fixed order.
func parseStatement(tokens []token.Token) (Block, []token.Token, bool) {
	if len(tokens) == 0 {
		return nil, tokens, false
	}
	if d, ok := tokens[0].(*token.Directive); ok {
		return &Directive{Token: d}, tokens[1:], true
	}
	parsers := []func([]token.Token) (Block, []token.Token, bool){
		parseUniform,
		parseInoutStruct,
		parseInout,
		parseStruct,
		parseFunction,
		parseControl,
		parseScope,
		parseDeclaration,
		parseAssignment,
	}
	for _, p := range parsers {
		if b, tail, ok := p(tokens); ok {
			return b, tail, true
		}
	}
	return nil, tokens, false
}

// consumeRawStatement swallows tokens up to and including the next ';'
// (or, lacking one, everything remaining) as a Raw block. The
// terminating ';' stays in the raw token list so pass-through output
// keeps its statement boundary. A directive line ends the raw statement
// without being swallowed into it.
func consumeRawStatement(tokens []token.Token) (*Raw, []token.Token) {
	for i, t := range tokens {
		if isSemicolonLiteral(t) {
			return &Raw{Tokens: tokens[:i+1]}, tokens[i+1:]
		}
		if _, ok := t.(*token.Directive); ok {
			return &Raw{Tokens: tokens[:i]}, tokens[i:]
		}
	}
	return &Raw{Tokens: tokens}, nil
}

// isSemicolonLiteral covers the fallback-raw-token representation of
// ';', which the tokenizer's delimiter splitting always emits as its own
// lexeme (never classified as an Operator since it is not in the
// operator table), so it survives as a raw token.
func isSemicolonLiteral(t token.Token) bool {
	return t.Format() == ";"
}

// ----------------------------------------------------------------------------
// Uniform
// ----------------------------------------------------------------------------

func parseUniform(tokens []token.Token) (Block, []token.Token, bool) {
	rest := tokens
	layout := ""
	if slots, tail, ok := ExtractTokens(rest, []Item{"layout", SelOpenParen}); ok {
		layout = formatTokens(slots[1].Scope)
		rest = tail
	}
	slots, tail, ok := ExtractTokens(rest, []Item{"uniform", SelType, SelName})
	if !ok {
		return nil, tokens, false
	}
	u := &Uniform{Layout: layout, Type: slots[1].Tok.(*token.Type), Name: slots[2].Tok.(*token.Name)}
	u.Name.SetType(u.Type)
	rest = tail
	if sizeSlots, sizeTail, ok := ExtractTokens(rest, []Item{SelOpenBracket}); ok {
		if len(sizeSlots[0].Scope) == 1 {
			if iv, ok := sizeSlots[0].Scope[0].(*token.Int); ok {
				u.Size = iv
			}
		}
		rest = sizeTail
	}
	if semi, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
		_ = semi
		return u, semiTail, true
	}
	return nil, tokens, false
}

// ----------------------------------------------------------------------------
// Inout / InoutStruct
// ----------------------------------------------------------------------------

func parseInout(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelInout, SelType, SelName})
	if !ok {
		return nil, tokens, false
	}
	io := &Inout{
		Direction: slots[0].Tok.(*token.Inout).Direction,
		Type:      slots[1].Tok.(*token.Type),
		Name:      slots[2].Tok.(*token.Name),
	}
	io.Name.SetType(io.Type)
	rest := tail
	if sizeSlots, sizeTail, ok := ExtractTokens(rest, []Item{SelOpenBracket}); ok {
		if len(sizeSlots[0].Scope) == 1 {
			if iv, ok := sizeSlots[0].Scope[0].(*token.Int); ok {
				io.Size = iv
			}
		}
		rest = sizeTail
	}
	if _, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
		return io, semiTail, true
	}
	return nil, tokens, false
}

func parseInoutStruct(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelInout, SelName, SelOpenBrace})
	if !ok {
		return nil, tokens, false
	}
	members, ok := parseMemberList(slots[2].Scope)
	if !ok {
		return nil, tokens, false
	}
	s := &InoutStruct{
		Direction: slots[0].Tok.(*token.Inout).Direction,
		TypeName:  slots[1].Tok.(*token.Name),
		Members:   members,
	}
	rest := tail
	if nameSlots, nameTail, ok := ExtractTokens(rest, []Item{SelName}); ok {
		s.MemberName = nameSlots[0].Tok.(*token.Name)
		s.MemberName.SetType(&token.Type{Kind: s.TypeName.Spelling()})
		rest = nameTail
	}
	if _, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
		return s, semiTail, true
	}
	return nil, tokens, false
}

// parseMemberList parses a `;`-separated run of `<type> <name>[<size>]`
// member declarations out of a brace-delimited interior.
func parseMemberList(tokens []token.Token) ([]*Uniform, bool) {
	var out []*Uniform
	rest := tokens
	for len(rest) > 0 {
		slots, tail, ok := ExtractTokens(rest, []Item{SelType, SelName})
		if !ok {
			return nil, false
		}
		m := &Uniform{Type: slots[0].Tok.(*token.Type), Name: slots[1].Tok.(*token.Name)}
		m.Name.SetType(m.Type)
		rest = tail
		if sizeSlots, sizeTail, ok := ExtractTokens(rest, []Item{SelOpenBracket}); ok {
			if len(sizeSlots[0].Scope) == 1 {
				if iv, ok := sizeSlots[0].Scope[0].(*token.Int); ok {
					m.Size = iv
				}
			}
			rest = sizeTail
		}
		semiSlots, semiTail, ok := ExtractTokens(rest, []Item{";"})
		_ = semiSlots
		if !ok {
			return nil, false
		}
		rest = semiTail
		out = append(out, m)
	}
	return out, true
}

// ----------------------------------------------------------------------------
// Struct
// ----------------------------------------------------------------------------

func parseStruct(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{"struct", SelName, SelOpenBrace})
	if !ok {
		return nil, tokens, false
	}
	members, ok := parseMemberList(slots[2].Scope)
	if !ok {
		return nil, tokens, false
	}
	if _, semiTail, ok := ExtractTokens(tail, []Item{";"}); ok {
		return &Struct{TypeName: slots[1].Tok.(*token.Name), Members: members}, semiTail, true
	}
	return nil, tokens, false
}

// ----------------------------------------------------------------------------
// Function
// ----------------------------------------------------------------------------

func parseFunction(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelType, SelName, SelOpenParen})
	if !ok {
		return nil, tokens, false
	}
	params, ok := parseParamList(slots[2].Scope)
	if !ok {
		return nil, tokens, false
	}
	braceSlots, braceTail, ok := ExtractTokens(tail, []Item{SelOpenBrace})
	if !ok {
		return nil, tokens, false
	}
	scope := parseScopeBody(braceSlots[0].Scope)
	fn := &Function{ReturnType: slots[0].Tok.(*token.Type), Name: slots[1].Tok.(*token.Name), Params: params}
	Attach(fn, scope)
	fn.Scope = scope
	return fn, braceTail, true
}

func parseParamList(tokens []token.Token) ([]Param, bool) {
	var out []Param
	rest := tokens
	for len(rest) > 0 {
		slots, tail, ok := ExtractTokens(rest, []Item{SelType, SelName})
		if !ok {
			return nil, false
		}
		p := Param{Type: slots[0].Tok.(*token.Type), Name: slots[1].Tok.(*token.Name)}
		p.Name.SetType(p.Type)
		out = append(out, p)
		rest = tail
		if commaSlots, commaTail, ok := ExtractTokens(rest, []Item{","}); ok {
			_ = commaSlots
			rest = commaTail
			continue
		}
		break
	}
	if len(rest) != 0 {
		return nil, false
	}
	return out, true
}

// ----------------------------------------------------------------------------
// Scope
// ----------------------------------------------------------------------------

func parseScope(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelOpenBrace})
	if !ok {
		return nil, tokens, false
	}
	return parseScopeBody(slots[0].Scope), tail, true
}

func parseScopeBody(tokens []token.Token) *Scope {
	s := &Scope{}
	rest := tokens
	for len(rest) > 0 {
		child, tail, ok := parseStatement(rest)
		if ok {
			Attach(s, child)
			rest = tail
			continue
		}
		raw, tail := consumeRawStatement(rest)
		Attach(s, raw)
		rest = tail
	}
	return s
}

// ----------------------------------------------------------------------------
// Declaration
// ----------------------------------------------------------------------------

func parseDeclaration(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelType, SelName})
	if !ok {
		return nil, tokens, false
	}
	d := &Declaration{Type: slots[0].Tok.(*token.Type)}
	name := slots[1].Tok.(*token.Name)
	name.SetType(d.Type)
	rest := tail
	for {
		var init []token.Token
		if eqSlots, eqTail, ok := ExtractTokens(rest, []Item{SelOperator("=")}); ok {
			_ = eqSlots
			var consumed []token.Token
			consumed, rest = consumeUntilCommaOrSemi(eqTail)
			init = consumed
		}
		d.Names = append(d.Names, DeclName{Name: name, Init: init})
		if len(rest) > 0 && isComma(rest[0]) {
			nameSlots, nameTail, ok := ExtractTokens(rest[1:], []Item{SelName})
			if !ok {
				break
			}
			name = nameSlots[0].Tok.(*token.Name)
			name.SetType(d.Type)
			rest = nameTail
			continue
		}
		break
	}
	if _, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
		return d, semiTail, true
	}
	return nil, tokens, false
}

func isComma(t token.Token) bool { return t.Format() == "," }

// consumeUntilCommaOrSemi splits off everything up to (not including) the
// next top-level ',' or ';' — a simple, paren-depth-aware scan so that a
// function-call RHS like `vec4(a,b)` doesn't get split on its internal
// comma.
func consumeUntilCommaOrSemi(tokens []token.Token) (head []token.Token, tail []token.Token) {
	depth := 0
	for i, t := range tokens {
		if p, ok := t.(*token.Paren); ok {
			if p.IsOpen() {
				depth++
			} else {
				depth--
			}
		}
		if depth == 0 && (isComma(t) || isSemicolonLiteral(t)) {
			return tokens[:i], tokens[i:]
		}
	}
	return tokens, nil
}

// ----------------------------------------------------------------------------
// Assignment
// ----------------------------------------------------------------------------

var assignOps = []string{"=", "+=", "-=", "*=", "/="}

func parseAssignment(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelName})
	if !ok {
		return nil, tokens, false
	}
	rest := tail
	for _, opSym := range assignOps {
		opSlots, opTail, ok := ExtractTokens(rest, []Item{SelOperator(opSym)})
		if !ok {
			continue
		}
		rhs, after := consumeUntilCommaOrSemi(opTail)
		if _, semiTail, ok := ExtractTokens(after, []Item{";"}); ok {
			return &Assignment{LHS: slots[0].Tok.(*token.Name), Op: opSlots[0].Tok.(*token.Operator), RHS: rhs}, semiTail, true
		}
		return nil, tokens, false
	}
	return nil, tokens, false
}

// ----------------------------------------------------------------------------
// Control
// ----------------------------------------------------------------------------

func parseControl(tokens []token.Token) (Block, []token.Token, bool) {
	slots, tail, ok := ExtractTokens(tokens, []Item{SelControl})
	if !ok {
		return nil, tokens, false
	}
	kw := slots[0].Tok.(*token.Control)
	rest := tail

	var cond []token.Token
	if kw.Keyword != "return" && kw.Keyword != "discard" {
		condSlots, condTail, ok := ExtractTokens(rest, []Item{SelOpenParen})
		if ok {
			cond = condSlots[0].Scope
			rest = condTail
		}
	} else if kw.Keyword == "return" {
		consumed, after := consumeUntilCommaOrSemi(rest)
		if len(consumed) > 0 {
			cond = consumed
		}
		rest = after
	}

	c := &ControlBlock{Keyword: kw, Condition: cond}

	if kw.Keyword == "discard" || (kw.Keyword == "return" && len(cond) == 0) {
		if _, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
			return c, semiTail, true
		}
	}
	if kw.Keyword == "return" {
		if _, semiTail, ok := ExtractTokens(rest, []Item{";"}); ok {
			return c, semiTail, true
		}
		return nil, tokens, false
	}

	if bodySlots, bodyTail, ok := ExtractTokens(rest, []Item{SelOpenBrace}); ok {
		c.Body = parseScopeBody(bodySlots[0].Scope)
		Attach(c, c.Body)
		return c, bodyTail, true
	}
	// Inlined single statement (no braces).
	body, bodyTail, ok := parseStatement(rest)
	if !ok {
		raw, t := consumeRawStatement(rest)
		body, bodyTail = raw, t
	}
	c.Body = body
	Attach(c, body)
	return c, bodyTail, true
}
