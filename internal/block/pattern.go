package block

import (
	"strings"

	"github.com/hugodaniel/glslmin/internal/token"
)

func splitAlternation(s string) []string { return strings.Split(s, "|") }

// ExtractScope walks tokens tracking nesting via opener's Update,
// starting from depth 1 (opener has already been consumed by the
// caller), and returns the sublist enclosed by the matching closer plus
// the remaining tail. ok is false if the closer is never reached.
func ExtractScope(tokens []token.Token, opener *token.Paren) (inner []token.Token, tail []token.Token, ok bool) {
	depth := 1
	for i, t := range tokens {
		if p, isParen := t.(*token.Paren); isParen {
			depth = opener.Update(p, depth)
			if depth == 0 {
				return tokens[:i], tokens[i+1:], true
			}
		}
	}
	return nil, tokens, false
}

// Slot is one matched selector result from ExtractTokens: either a
// single token (Tok) or, for a paren selector, the inner token list
// extracted via ExtractScope (Scope).
type Slot struct {
	Tok   token.Token
	Scope []token.Token
	// IsScope distinguishes a ?( / ?[ / ?{ slot (Scope populated, Tok
	// the opening paren) from an ordinary single-token slot.
	IsScope bool
}

// Item is one element of an ExtractTokens pattern: either a literal
// string (matched against the token's Format()) or a selector beginning
// with '?'.
type Item string

const (
	SelType    Item = "?t"
	SelName    Item = "?n"
	SelUnsigned Item = "?u"
	SelInt     Item = "?i"
	SelFloat   Item = "?f"
	SelAccess  Item = "?a"
	SelControl Item = "?c"
	SelInout   Item = "?o"
	SelOpenParen   Item = "?("
	SelOpenBracket Item = "?["
	SelOpenBrace   Item = "?{"
)

// SelOperator builds a literal-operator selector "?=<symbol>", e.g.
// SelOperator("=") matches an Operator token whose Format() == "=".
func SelOperator(symbol string) Item { return Item("?=" + symbol) }

// SelAlternation builds an alternation selector matching any of the
// given literal spellings, e.g. SelAlternation("in", "out", "inout").
func SelAlternation(options ...string) Item {
	out := "?|"
	for i, o := range options {
		if i > 0 {
			out += "|"
		}
		out += o
	}
	return Item(out)
}

// ExtractTokens matches pattern against the front of tokens. On success
// it returns the matched slots (one per pattern item; a literal item's
// slot holds the matched token in Tok) and the remaining tail, ok true. On any mismatch
// it returns nil slots and the original tokens unchanged, ok false — the
// caller is expected to try an alternative pattern against the same
// input.
func ExtractTokens(tokens []token.Token, pattern []Item) (slots []Slot, tail []token.Token, ok bool) {
	if len(tokens) < len(pattern) {
		return nil, tokens, false
	}
	slots = make([]Slot, len(pattern))
	rest := tokens
	for i, item := range pattern {
		if len(rest) == 0 {
			return nil, tokens, false
		}
		slot, consumed, matched := matchOne(rest, item)
		if !matched {
			return nil, tokens, false
		}
		slots[i] = slot
		rest = consumed
	}
	return slots, rest, true
}

func matchOne(tokens []token.Token, item Item) (Slot, []token.Token, bool) {
	head := tokens[0]

	switch {
	case item == SelType:
		if t, ok := head.(*token.Type); ok {
			return Slot{Tok: t}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelName:
		if n, ok := head.(*token.Name); ok {
			return Slot{Tok: n}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelUnsigned:
		if n, ok := head.(*token.Int); ok && n.Unsigned {
			return Slot{Tok: n}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelInt:
		if n, ok := head.(*token.Int); ok {
			return Slot{Tok: n}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelFloat:
		if f, ok := head.(*token.Float); ok {
			return Slot{Tok: f}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelAccess:
		if a, ok := head.(*token.Access); ok {
			return Slot{Tok: a}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelControl:
		if c, ok := head.(*token.Control); ok {
			return Slot{Tok: c}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelInout:
		if o, ok := head.(*token.Inout); ok {
			return Slot{Tok: o}, tokens[1:], true
		}
		return Slot{}, nil, false
	case item == SelOpenParen || item == SelOpenBracket || item == SelOpenBrace:
		want := map[Item]byte{SelOpenParen: '(', SelOpenBracket: '[', SelOpenBrace: '{'}[item]
		p, ok := head.(*token.Paren)
		if !ok || p.Ch != want {
			return Slot{}, nil, false
		}
		inner, tail, ok := ExtractScope(tokens[1:], p)
		if !ok {
			return Slot{}, nil, false
		}
		return Slot{Tok: p, Scope: inner, IsScope: true}, tail, true
	case len(item) > 2 && item[:2] == "?|":
		options := splitAlternation(string(item[2:]))
		for _, o := range options {
			if head.Format() == o {
				return Slot{Tok: head}, tokens[1:], true
			}
		}
		return Slot{}, nil, false
	case len(item) > 2 && item[:2] == "?=":
		symbol := string(item[2:])
		if op, ok := head.(*token.Operator); ok && op.Format() == symbol {
			return Slot{Tok: op}, tokens[1:], true
		}
		return Slot{}, nil, false
	default:
		// Literal: matched verbatim against the token's formatted form.
		if head.Format() == string(item) {
			return Slot{Tok: head}, tokens[1:], true
		}
		return Slot{}, nil, false
	}
}
