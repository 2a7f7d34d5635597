package parser

import (
	"math/big"
	"strings"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/token"
)

// precedence levels, tight to loose per §4.1: unary > `* / %` > `+ -` >
// shifts > bitwise AND > XOR > OR > comparisons > logical AND > logical OR
// > assignment.
type precedence int

const (
	precLowest precedence = iota
	precAssign
	precLogicalOr
	precLogicalAnd
	precComparison
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrec = map[token.Kind]precedence{
	token.PipePipe: precLogicalOr,
	token.AmpAmp:   precLogicalAnd,
	token.EqEq: precComparison, token.Ne: precComparison,
	token.Lt: precComparison, token.Gt: precComparison,
	token.Le: precComparison, token.Ge: precComparison,
	token.Pipe: precBitOr,
	token.Caret: precBitXor,
	token.Amp: precBitAnd,
	token.Shl: precShift, token.Shr: precShift,
	token.Plus: precAdditive, token.Minus: precAdditive,
	token.Star: precMultiplicative, token.Slash: precMultiplicative, token.Percent: precMultiplicative,
}

var binOpOf = map[token.Kind]ast.BinaryOp{
	token.Plus: ast.BAdd, token.Minus: ast.BSub, token.Star: ast.BMul,
	token.Slash: ast.BDiv, token.Percent: ast.BMod,
	token.Shl: ast.BShl, token.Shr: ast.BShr,
	token.Amp: ast.BBitAnd, token.Caret: ast.BBitXor, token.Pipe: ast.BBitOr,
	token.EqEq: ast.BEq, token.Ne: ast.BNe, token.Lt: ast.BLt, token.Gt: ast.BGt,
	token.Le: ast.BLe, token.Ge: ast.BGe,
	token.AmpAmp: ast.BLogicalAnd, token.PipePipe: ast.BLogicalOr,
}

var compoundAssignOps = map[token.Kind]ast.BinaryOp{
	token.PlusEq: ast.BAdd, token.MinusEq: ast.BSub, token.StarEq: ast.BMul,
	token.SlashEq: ast.BDiv, token.PercentEq: ast.BMod,
	token.AmpEq: ast.BBitAnd, token.PipeEq: ast.BBitOr, token.CaretEq: ast.BBitXor,
	token.ShlEq: ast.BShl, token.ShrEq: ast.BShr,
}

// shrOp detects `>>`/`>>=` formed by two adjacent tokens with no gap
// between them: a `>` immediately followed by another `>` (shift) or by a
// `>=` (shift-assign). The lexer never combines these itself (unlike `<<`,
// which it does combine) so that nested generic closes like `A<B<C>>`
// still read as two separate single `>` tokens, closed one at a time by
// closeGenericArgs — pairing only happens here, while looking for an infix
// operator, and never while closing generic argument lists.
func (p *Parser) shrOp() (op ast.BinaryOp, compound bool, ok bool) {
	if p.cur.Kind != token.Gt || p.cur.Span.End != p.peek.Span.Start {
		return 0, false, false
	}
	switch p.peek.Kind {
	case token.Gt:
		return ast.BShr, false, true
	case token.Ge:
		return ast.BShr, true, true
	}
	return 0, false, false
}

// advanceShr consumes the two tokens shrOp matched.
func (p *Parser) advanceShr() {
	p.advance()
	p.advance()
}

// parseExpr is the Pratt expression entry point (§4.1).
func (p *Parser) parseExpr(minPrec precedence) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return ast.Expression{}, err
	}

	for {
		if op, compound, ok := p.shrOp(); ok {
			if compound {
				if minPrec > precAssign {
					break
				}
				p.advanceShr()
				rhs, err := p.parseExpr(precAssign)
				if err != nil {
					return ast.Expression{}, err
				}
				l, r := left, rhs
				left = ast.Expression{Kind: ast.ECompoundAssign, Span: source.Join(l.Span, r.Span),
					Lhs: &l, Rhs: &r, CompoundOp: op}
				continue
			}
			if precShift < minPrec {
				break
			}
			p.advanceShr()
			rhs, err := p.parseExpr(precShift + 1)
			if err != nil {
				return ast.Expression{}, err
			}
			l, r := left, rhs
			left = ast.Expression{Kind: ast.EBinary, Span: source.Join(l.Span, r.Span), BinOp: op, Lhs: &l, Rhs: &r}
			continue
		}
		if op, ok := compoundAssignOps[p.cur.Kind]; ok && minPrec <= precAssign {
			p.advance()
			rhs, err := p.parseExpr(precAssign)
			if err != nil {
				return ast.Expression{}, err
			}
			l, r := left, rhs
			left = ast.Expression{Kind: ast.ECompoundAssign, Span: source.Join(l.Span, r.Span),
				Lhs: &l, Rhs: &r, CompoundOp: op}
			continue
		}
		if p.at(token.Assign) && minPrec <= precAssign {
			p.advance()
			rhs, err := p.parseExpr(precAssign)
			if err != nil {
				return ast.Expression{}, err
			}
			l, r := left, rhs
			left = ast.Expression{Kind: ast.EAssign, Span: source.Join(l.Span, r.Span), Lhs: &l, Rhs: &r}
			continue
		}
		if p.at(token.KwIf) && minPrec <= precLowest {
			// ternary: `then if cond else else_`
			p.advance()
			cond, err := p.parseExpr(precLowest)
			if err != nil {
				return ast.Expression{}, err
			}
			if _, err := p.expect(token.KwElse); err != nil {
				return ast.Expression{}, err
			}
			elseV, err := p.parseExpr(precLowest)
			if err != nil {
				return ast.Expression{}, err
			}
			thenV := left
			left = ast.Expression{Kind: ast.ETernary, Span: source.Join(thenV.Span, elseV.Span),
				Then: &thenV, Cond: &cond, Else: &elseV}
			continue
		}

		prec, ok := binPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.cur
		op := binOpOf[opTok.Kind]
		p.advance()
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return ast.Expression{}, err
		}
		l, r := left, rhs
		left = ast.Expression{Kind: ast.EBinary, Span: source.Join(l.Span, r.Span), BinOp: op, Lhs: &l, Rhs: &r}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	start := p.cur.Span
	switch p.cur.Kind {
	case token.Minus:
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EUnary, Span: source.Join(start, e.Span), UnOp: ast.UNeg, Base: &e}, nil
	case token.Bang:
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EUnary, Span: source.Join(start, e.Span), UnOp: ast.UNot, Base: &e}, nil
	case token.Tilde:
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EUnary, Span: source.Join(start, e.Span), UnOp: ast.UBitNot, Base: &e}, nil
	case token.Star:
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EDeref, Span: source.Join(start, e.Span), Base: &e}, nil
	case token.Amp:
		p.advance()
		mut := p.eat(token.KwMut)
		e, err := p.parseUnary()
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ERef, Span: source.Join(start, e.Span), Base: &e, RefMutable: mut}, nil
	case token.KwSizeof:
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.Expression{}, err
		}
		// try type first; fall back to expression
		if p.looksLikeType() {
			t, err := p.parseType()
			if err != nil {
				return ast.Expression{}, err
			}
			end, err := p.expect(token.RParen)
			if err != nil {
				return ast.Expression{}, err
			}
			return ast.Expression{Kind: ast.ESizeof, Span: source.Join(start, end.Span), SizeofTarget: t}, nil
		}
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.Expression{}, err
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ESizeof, Span: source.Join(start, end.Span), SizeofExpr: &e}, nil
	case token.KwOffsetof:
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return ast.Expression{}, err
		}
		t, err := p.parseType()
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := p.expect(token.Comma); err != nil {
			return ast.Expression{}, err
		}
		field, err := p.expect(token.Identifier)
		if err != nil {
			return ast.Expression{}, err
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EOffsetof, Span: source.Join(start, end.Span), OffsetofBase: t, OffsetofField: field.Text}, nil
	}
	return p.parsePostfix()
}

// looksLikeType is a lookahead heuristic used only inside `sizeof(...)`,
// which accepts either a type or an expression.
func (p *Parser) looksLikeType() bool {
	switch p.cur.Kind {
	case token.Star, token.Amp, token.LBracket, token.KwFunc:
		return true
	case token.Identifier:
		return !p.peekAt(token.LParen) && !p.peekAt(token.Dot) && !p.peekAt(token.LBracket)
	}
	return false
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		switch p.cur.Kind {
		case token.Dot:
			p.advance()
			field, err := p.expect(token.Identifier)
			if err != nil {
				return ast.Expression{}, err
			}
			base := e
			e = ast.Expression{Kind: ast.EAttribute, Span: source.Join(base.Span, field.Span), Base: &base, Field: field.Text}
		case token.LBracket:
			p.advance()
			idx, err := p.parseExpr(precLowest)
			if err != nil {
				return ast.Expression{}, err
			}
			end, err := p.expect(token.RBracket)
			if err != nil {
				return ast.Expression{}, err
			}
			base := e
			e = ast.Expression{Kind: ast.EIndex, Span: source.Join(base.Span, end.Span), Base: &base, Index: &idx}
		case token.LParen:
			args, end, err := p.parseCallArgs()
			if err != nil {
				return ast.Expression{}, err
			}
			callee := e
			e = ast.Expression{Kind: ast.ECall, Span: source.Join(callee.Span, end), Callee: callee, Args: args}
		case token.KwAs:
			p.advance()
			t, err := p.parseType()
			if err != nil {
				return ast.Expression{}, err
			}
			base := e
			e = ast.Expression{Kind: ast.ECast, Span: source.Join(base.Span, t.NodeSpan), Base: &base, TargetType: t}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.CallArg, source.Span, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, source.Span{}, err
	}
	var args []ast.CallArg
	for !p.at(token.RParen) {
		var arg ast.CallArg
		if p.at(token.Identifier) && p.peekAt(token.Colon) {
			arg.Keyword = p.cur.Text
			p.advance()
			p.advance()
		}
		v, err := p.parseExpr(precAssign + 1)
		if err != nil {
			return nil, source.Span{}, err
		}
		arg.Value = v
		args = append(args, arg)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, source.Span{}, err
	}
	return args, end.Span, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur
	switch tok.Kind {
	case token.Integer:
		p.advance()
		return p.makeIntLiteral(tok)
	case token.Float:
		p.advance()
		return p.makeFloatLiteral(tok)
	case token.Char:
		p.advance()
		r := decodeCharLiteral(tok.Text)
		return ast.Expression{Kind: ast.EChar, Span: tok.Span, Char: r}, nil
	case token.String, token.RawString:
		p.advance()
		return ast.Expression{Kind: ast.EString, Span: tok.Span, Str: decodeStringLiteral(tok.Text, tok.Kind == token.RawString)}, nil
	case token.KwTrue:
		p.advance()
		return ast.Expression{Kind: ast.EBool, Span: tok.Span, Bool: true}, nil
	case token.KwFalse:
		p.advance()
		return ast.Expression{Kind: ast.EBool, Span: tok.Span, Bool: false}, nil
	case token.KwNull:
		p.advance()
		return ast.Expression{Kind: ast.ENull, Span: tok.Span}, nil
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.Identifier:
		return p.parseIdentOrPathOrStruct()
	case token.KwMatch:
		return p.parseMatchExpr()
	default:
		return ast.Expression{}, p.errorf(tok.Span, diagnostics.UnexpectedToken, "unexpected token %s in expression", tok.Kind)
	}
}

func (p *Parser) parseParenOrTuple() (ast.Expression, error) {
	start := p.cur.Span
	p.advance() // (
	if p.eat(token.RParen) {
		return ast.Expression{Kind: ast.ETuple, Span: source.Join(start, p.cur.Span)}, nil
	}
	// closures: `(params) => expr`
	if p.looksLikeClosureParams() {
		return p.parseClosure(start)
	}
	first, err := p.parseExpr(precLowest)
	if err != nil {
		return ast.Expression{}, err
	}
	if p.eat(token.Comma) {
		elems := []ast.Expression{first}
		for !p.at(token.RParen) {
			e, err := p.parseExpr(precLowest)
			if err != nil {
				return ast.Expression{}, err
			}
			elems = append(elems, e)
			if !p.eat(token.Comma) {
				break
			}
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.ETuple, Span: source.Join(start, end.Span), Elements: elems}, nil
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return ast.Expression{}, err
	}
	first.Span = source.Join(start, end.Span)
	return first, nil
}

// looksLikeClosureParams peeks for `ident [, ident]* ) =>` or `) =>`.
func (p *Parser) looksLikeClosureParams() bool {
	return p.at(token.RParen) && p.peekAt(token.FatArrow) || p.at(token.Identifier) && looksLikeClosureAhead(p)
}

func looksLikeClosureAhead(p *Parser) bool {
	// We cannot arbitrarily backtrack over a TokenStream; approximate by
	// requiring a simple identifier list followed immediately by `) =>`
	// which the caller re-checks one token at a time via parseClosure's own
	// fallback to expression parsing on mismatch.
	return p.peekAt(token.Comma) || p.peekAt(token.RParen)
}

func (p *Parser) parseClosure(start source.Span) (ast.Expression, error) {
	var params []ast.ClosureParam
	for !p.at(token.RParen) {
		name, err := p.expect(token.Identifier)
		if err != nil {
			return ast.Expression{}, err
		}
		cp := ast.ClosureParam{Name: name.Text}
		if p.eat(token.Colon) {
			t, err := p.parseType()
			if err != nil {
				return ast.Expression{}, err
			}
			cp.Type = &t
		}
		params = append(params, cp)
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expect(token.FatArrow); err != nil {
		return ast.Expression{}, err
	}
	body, err := p.parseExpr(precLowest)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.EClosure, Span: source.Join(start, body.Span), ClosureParams: params, ClosureBody: body}, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	start := p.cur.Span
	p.advance() // [
	if p.eat(token.RBracket) {
		return ast.Expression{Kind: ast.EArray, Span: source.Join(start, p.cur.Span)}, nil
	}
	first, err := p.parseExpr(precLowest)
	if err != nil {
		return ast.Expression{}, err
	}
	if p.eat(token.Semicolon) {
		count, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.Expression{}, err
		}
		end, err := p.expect(token.RBracket)
		if err != nil {
			return ast.Expression{}, err
		}
		return ast.Expression{Kind: ast.EArrayFill, Span: source.Join(start, end.Span), FillValue: &first, FillCount: count}, nil
	}
	elems := []ast.Expression{first}
	for p.eat(token.Comma) {
		if p.at(token.RBracket) {
			break
		}
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.Expression{}, err
		}
		elems = append(elems, e)
	}
	end, err := p.expect(token.RBracket)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.EArray, Span: source.Join(start, end.Span), Elements: elems}, nil
}

func (p *Parser) parseIdentOrPathOrStruct() (ast.Expression, error) {
	start := p.cur.Span
	segs, err := p.parseTypePathSegments()
	if err != nil {
		return ast.Expression{}, err
	}
	end := segs[len(segs)-1].Span
	if p.at(token.LBrace) && p.structLiteralAllowed() {
		return p.parseStructLiteral(start, segs)
	}
	if len(segs) == 1 && len(segs[0].Generics) == 0 {
		return ast.Expression{Kind: ast.EIdent, Span: segs[0].Span, Name: segs[0].Name}, nil
	}
	return ast.Expression{Kind: ast.EPath, Span: source.Join(start, end), Segments: segs}, nil
}

// structLiteralAllowed gates `Path { ... }` so that `if cond { ... }` is not
// misparsed as a struct literal named `cond`; if/while condition parsing,
// the for-loop iterable and the match subject disable it via
// noStructLiterals.
func (p *Parser) structLiteralAllowed() bool { return !p.noStructLiterals }

func (p *Parser) parseStructLiteral(start source.Span, segs []ast.PathSegment) (ast.Expression, error) {
	p.advance() // {
	var inits []ast.StructFieldInit
	for !p.at(token.RBrace) {
		name, err := p.expect(token.Identifier)
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return ast.Expression{}, err
		}
		v, err := p.parseExpr(precAssign + 1)
		if err != nil {
			return ast.Expression{}, err
		}
		inits = append(inits, ast.StructFieldInit{Name: name.Text, Value: v, Span: source.Join(name.Span, v.Span)})
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.EStruct, Span: source.Join(start, end.Span), StructPath: segs, StructInits: inits}, nil
}

func (p *Parser) parseMatchExpr() (ast.Expression, error) {
	start := p.cur.Span
	p.advance() // match
	savedNoStruct := p.noStructLiterals
	p.noStructLiterals = true
	subject, err := p.parseExpr(precLowest)
	p.noStructLiterals = savedNoStruct
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return ast.Expression{}, err
	}
	var arms []ast.MatchArm
	for !p.at(token.RBrace) {
		armStart := p.cur.Span
		var arm ast.MatchArm
		if p.eat(token.KwElse) {
			arm.Patterns = nil
		} else {
			pat, err := p.parsePattern()
			if err != nil {
				return ast.Expression{}, err
			}
			arm.Patterns = append(arm.Patterns, pat)
			for p.eat(token.Pipe) {
				pat, err := p.parsePattern()
				if err != nil {
					return ast.Expression{}, err
				}
				arm.Patterns = append(arm.Patterns, pat)
			}
		}
		if _, err := p.expect(token.FatArrow); err != nil {
			return ast.Expression{}, err
		}
		body, err := p.parseExpr(precAssign + 1)
		if err != nil {
			return ast.Expression{}, err
		}
		arm.Body = body
		arm.Span = source.Join(armStart, body.Span)
		arms = append(arms, arm)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return ast.Expression{}, err
	}
	return ast.Expression{Kind: ast.EMatch, Span: source.Join(start, end.Span), Cond: &subject, MatchArms: arms}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	tok := p.cur
	switch tok.Kind {
	case token.Identifier:
		if tok.Text == "_" {
			p.advance()
			return ast.Pattern{Kind: ast.PWildcard, Span: tok.Span}, nil
		}
		segs, err := p.parseTypePathSegments()
		if err != nil {
			return ast.Pattern{}, err
		}
		if p.at(token.LBrace) {
			p.advance()
			var names []string
			var fields []ast.Pattern
			for !p.at(token.RBrace) {
				fname, err := p.expect(token.Identifier)
				if err != nil {
					return ast.Pattern{}, err
				}
				names = append(names, fname.Text)
				if p.eat(token.Colon) {
					fp, err := p.parsePattern()
					if err != nil {
						return ast.Pattern{}, err
					}
					fields = append(fields, fp)
				} else {
					fields = append(fields, ast.Pattern{Kind: ast.PBinding, Name: fname.Text, Span: fname.Span})
				}
				if !p.eat(token.Comma) {
					break
				}
			}
			end, err := p.expect(token.RBrace)
			if err != nil {
				return ast.Pattern{}, err
			}
			return ast.Pattern{Kind: ast.PStruct, Span: source.Join(tok.Span, end.Span), StructPath: segs, FieldNames: names, Fields: fields}, nil
		}
		if len(segs) == 1 {
			return ast.Pattern{Kind: ast.PBinding, Name: segs[0].Name, Span: segs[0].Span}, nil
		}
		return ast.Pattern{Kind: ast.PStruct, Span: tok.Span, StructPath: segs}, nil
	case token.LParen:
		p.advance()
		var elems []ast.Pattern
		for !p.at(token.RParen) {
			sp, err := p.parsePattern()
			if err != nil {
				return ast.Pattern{}, err
			}
			elems = append(elems, sp)
			if !p.eat(token.Comma) {
				break
			}
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Kind: ast.PTuple, Span: source.Join(tok.Span, end.Span), Elements: elems}, nil
	default:
		lit, err := p.parseExpr(precUnary)
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Kind: ast.PLiteral, Span: lit.Span, Literal: lit}, nil
	}
}

func (p *Parser) makeIntLiteral(tok token.Token) (ast.Expression, error) {
	text := tok.Text
	suffix := ""
	for _, suf := range []string{"i128", "u128", "i64", "u64", "i32", "u32", "i16", "u16", "i8", "u8", "usize", "isize"} {
		if strings.HasSuffix(text, suf) {
			suffix = suf
			text = strings.TrimSuffix(text, suf)
			break
		}
	}
	text = strings.ReplaceAll(text, "_", "")
	n := new(big.Int)
	if _, ok := n.SetString(text, 0); !ok {
		return ast.Expression{}, p.errorf(tok.Span, diagnostics.InvalidLiteral, "invalid integer literal %q", tok.Text)
	}
	return ast.Expression{Kind: ast.EInt, Span: tok.Span, Int: n, IntSuffix: suffix}, nil
}

func (p *Parser) makeFloatLiteral(tok token.Token) (ast.Expression, error) {
	text := tok.Text
	isF64 := strings.HasSuffix(text, "f64") || strings.HasSuffix(text, "d")
	for _, suf := range []string{"f32", "f64", "d"} {
		text = strings.TrimSuffix(text, suf)
	}
	text = strings.ReplaceAll(text, "_", "")
	f := new(big.Float)
	if _, ok := f.SetString(text); !ok {
		return ast.Expression{}, p.errorf(tok.Span, diagnostics.InvalidLiteral, "invalid float literal %q", tok.Text)
	}
	v, _ := f.Float64()
	return ast.Expression{Kind: ast.EFloat, Span: tok.Span, Float: v, FloatIsF64: isF64}, nil
}

func decodeCharLiteral(text string) rune {
	inner := strings.Trim(text, "'")
	if strings.HasPrefix(inner, "\\") {
		return unescapeOne(inner)
	}
	for _, r := range inner {
		return r
	}
	return 0
}

func decodeStringLiteral(text string, raw bool) string {
	if raw {
		inner := text
		if len(inner) >= 2 {
			inner = inner[1 : len(inner)-1]
		}
		return strings.TrimPrefix(inner, "\"")
	}
	inner := text
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1]
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			b.WriteRune(escapeChar(inner[i]))
			continue
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

func unescapeOne(s string) rune {
	if len(s) < 2 {
		return 0
	}
	return escapeChar(s[1])
}

func escapeChar(c byte) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '\'':
		return '\''
	case '"':
		return '"'
	default:
		return rune(c)
	}
}
