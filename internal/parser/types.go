package parser

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/token"
)

// parseType parses a syntactic type annotation (§4.1 grammar for types:
// named paths with optional generics, `*T`/`*mut T`, `&T`/`&mut T`,
// `[T;N]`, tuple types, and function types).
func (p *Parser) parseType() (ast.TypeExpr, error) {
	start := p.cur.Span
	switch p.cur.Kind {
	case token.Star:
		p.advance()
		mut := p.eat(token.KwMut)
		pointee, err := p.parseType()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Kind: ast.TEPointer, Pointee: &pointee, Mutable: mut, NodeSpan: start}, nil
	case token.Amp:
		p.advance()
		mut := p.eat(token.KwMut)
		referent, err := p.parseType()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Kind: ast.TEReference, Pointee: &referent, Mutable: mut, NodeSpan: start}, nil
	case token.LBracket:
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return ast.TypeExpr{}, err
		}
		lenExpr, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Kind: ast.TEArray, Element: &elem, Len: lenExpr, NodeSpan: start}, nil
	case token.LParen:
		p.advance()
		var elems []ast.TypeExpr
		for !p.at(token.RParen) {
			t, err := p.parseType()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			elems = append(elems, t)
			if !p.eat(token.Comma) {
				break
			}
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Kind: ast.TETuple, Elements: elems, NodeSpan: start}, nil
	case token.KwFunc:
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.TypeExpr{}, err
		}
		var params []ast.TypeExpr
		cVariadic := false
		for !p.at(token.RParen) {
			if p.at(token.Identifier) && p.cur.Text == "..." {
				p.advance()
				cVariadic = true
				break
			}
			t, err := p.parseType()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			params = append(params, t)
			if !p.eat(token.Comma) {
				break
			}
		}
		if _, err := p.expect(token.RParen); err != nil {
			return ast.TypeExpr{}, err
		}
		var ret ast.TypeExpr = ast.TypeExpr{Kind: ast.TENamed, Segments: []ast.PathSegment{{Name: "void"}}}
		if p.eat(token.Arrow) {
			r, err := p.parseType()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			ret = r
		}
		return ast.TypeExpr{Kind: ast.TEFunction, Params: params, Ret: &ret, CVariadic: cVariadic, NodeSpan: start}, nil
	default:
		segs, err := p.parseTypePathSegments()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Kind: ast.TENamed, Segments: segs, NodeSpan: start}, nil
	}
}

func (p *Parser) parseTypePathSegments() ([]ast.PathSegment, error) {
	var segs []ast.PathSegment
	for {
		tok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		seg := ast.PathSegment{Name: tok.Text, Span: tok.Span}
		if p.at(token.Lt) && p.canStartGenericArgs() {
			p.advance()
			for !p.atShr() && !p.at(token.Gt) {
				t, err := p.parseType()
				if err != nil {
					return nil, err
				}
				seg.Generics = append(seg.Generics, t)
				if !p.eat(token.Comma) {
					break
				}
			}
			if err := p.closeGenericArgs(); err != nil {
				return nil, err
			}
		}
		segs = append(segs, seg)
		if !p.eat(token.ColonColon) {
			break
		}
	}
	return segs, nil
}

// canStartGenericArgs is a syntactic heuristic: a `<` immediately following
// a type-path identifier, in a type context, always starts generics (types
// never appear as the lhs of a `<` comparison).
func (p *Parser) canStartGenericArgs() bool { return true }

// atShr exists for a token.Shr the lexer never actually emits — it always
// tokenizes `>` one rune at a time (see lexer.go's `case '>'`), so that
// closing nested generic lists like `A<B<C>>` reads as two ordinary single
// `>` tokens here instead of one combined shift token that would need
// splitting. `>>` as a shift operator is recombined by parseExpr's shrOp
// pairing instead, which only fires while looking for an infix operator,
// never while closing generic argument lists.
func (p *Parser) atShr() bool { return p.at(token.Shr) }

// closeGenericArgs consumes the single `>` that closes one level of a
// generic argument list.
func (p *Parser) closeGenericArgs() error {
	if p.at(token.Shr) {
		p.cur.Kind = token.Gt
		p.cur.Text = ">"
		return nil
	}
	_, err := p.expect(token.Gt)
	return err
}
