package parser

import (
	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/token"
)

// parseTopLevelStatement parses one declaration permitted at module scope.
func (p *Parser) parseTopLevelStatement() (*ast.Statement, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	var stmt *ast.Statement
	switch p.cur.Kind {
	case token.KwLet, token.KwConst:
		stmt, err = p.parseLetOrConst()
	case token.KwFunc:
		stmt, err = p.parseFunc(false)
	case token.KwStruct:
		stmt, err = p.parseStruct()
	case token.KwEnum:
		stmt, err = p.parseEnum()
	case token.KwTrait:
		stmt, err = p.parseTrait()
	case token.KwImpl:
		stmt, err = p.parseImpl()
	case token.KwType:
		stmt, err = p.parseTypeAlias()
	case token.KwModule:
		stmt, err = p.parseModuleBlock()
	case token.KwExtern:
		stmt, err = p.parseExternBlock()
	case token.KwUsing:
		stmt, err = p.parseUsing()
	case token.KwStaticAssert:
		stmt, err = p.parseStaticAssert()
	default:
		return nil, p.errorf(p.cur.Span, diagnostics.UnexpectedToken, "unexpected token %s at top level", p.cur.Kind)
	}
	if err != nil {
		return nil, err
	}
	stmt.Attrs = attrs
	return stmt, nil
}

// parseStatement parses one statement inside a function/block body.
func (p *Parser) parseStatement() (*ast.Statement, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	var stmt *ast.Statement
	switch p.cur.Kind {
	case token.KwLet, token.KwConst:
		stmt, err = p.parseLetOrConst()
	case token.KwFunc:
		stmt, err = p.parseFunc(false)
	case token.KwStruct:
		stmt, err = p.parseStruct()
	case token.KwIf:
		stmt, err = p.parseIf()
		return stmt, err // no trailing `;`, attrs unused on control flow
	case token.KwWhile:
		stmt, err = p.parseWhile()
		return stmt, err
	case token.KwFor:
		stmt, err = p.parseFor()
		return stmt, err
	case token.LBrace:
		stmt, err = p.parseBlock()
		return stmt, err
	case token.KwBreak:
		span := p.cur.Span
		p.advance()
		if !top(p.ctx.inLoop) {
			return nil, p.errorf(span, diagnostics.InvalidContext, "`break` outside of a loop")
		}
		_, err = p.expect(token.Semicolon)
		stmt = &ast.Statement{Kind: ast.SBreak, Span: span}
	case token.KwContinue:
		span := p.cur.Span
		p.advance()
		if !top(p.ctx.inLoop) {
			return nil, p.errorf(span, diagnostics.InvalidContext, "`continue` outside of a loop")
		}
		_, err = p.expect(token.Semicolon)
		stmt = &ast.Statement{Kind: ast.SContinue, Span: span}
	case token.KwReturn:
		stmt, err = p.parseReturn()
	case token.KwDefer:
		stmt, err = p.parseDefer()
	case token.KwStaticAssert:
		stmt, err = p.parseStaticAssert()
	default:
		stmt, err = p.parseExprStatement()
	}
	if err != nil {
		return nil, err
	}
	if stmt != nil {
		stmt.Attrs = attrs
	}
	return stmt, nil
}

func (p *Parser) parseBlock() (*ast.Statement, error) {
	start := p.cur.Span
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, *s)
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SBlock, Span: source.Join(start, end.Span), Statements: stmts}, nil
}

func (p *Parser) parseCondNoStruct() (ast.Expression, error) {
	saved := p.noStructLiterals
	p.noStructLiterals = true
	e, err := p.parseExpr(precLowest)
	p.noStructLiterals = saved
	return e, err
}

func (p *Parser) parseIf() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // if
	cond, err := p.parseCondNoStruct()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.SIf, Span: start, Cond: &cond, Then: then}
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // while
	cond, err := p.parseCondNoStruct()
	if err != nil {
		return nil, err
	}
	p.ctx.push(&p.ctx.inLoop, true)
	body, err := p.parseBlock()
	p.ctx.pop(&p.ctx.inLoop)
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SWhile, Span: start, WhileCond: &cond, WhileBody: body}, nil
}

func (p *Parser) parseFor() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // for
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	saved := p.noStructLiterals
	p.noStructLiterals = true
	first, err := p.parseExpr(precLowest)
	if err != nil {
		p.noStructLiterals = saved
		return nil, err
	}
	if p.at(token.DotDot) || p.at(token.DotDotEq) {
		inclusive := p.at(token.DotDotEq)
		p.advance()
		end, err := p.parseExpr(precLowest)
		p.noStructLiterals = saved
		if err != nil {
			return nil, err
		}
		p.ctx.push(&p.ctx.inLoop, true)
		body, err := p.parseBlock()
		p.ctx.pop(&p.ctx.inLoop)
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Kind: ast.SForRange, Span: start, RangeVar: name.Text,
			RangeStart: &first, RangeEnd: &end, RangeInclusive: inclusive, RangeBody: body}, nil
	}
	p.noStructLiterals = saved
	p.ctx.push(&p.ctx.inLoop, true)
	body, err := p.parseBlock()
	p.ctx.pop(&p.ctx.inLoop)
	if err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SFor, Span: start, ForVar: name.Text, ForIterable: &first, ForBody: body}, nil
}

func (p *Parser) parseReturn() (*ast.Statement, error) {
	span := p.cur.Span
	p.advance()
	if p.eat(token.Semicolon) {
		return &ast.Statement{Kind: ast.SReturn, Span: span}, nil
	}
	v, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SReturn, Span: source.Join(span, v.Span), ReturnValue: &v}, nil
}

func (p *Parser) parseDefer() (*ast.Statement, error) {
	span := p.cur.Span
	p.advance()
	v, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SDefer, Span: source.Join(span, v.Span), DeferExpr: &v}, nil
}

func (p *Parser) parseStaticAssert() (*ast.Statement, error) {
	span := p.cur.Span
	p.advance()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precAssign + 1)
	if err != nil {
		return nil, err
	}
	msg := ""
	if p.eat(token.Comma) {
		tok, err := p.expect(token.String)
		if err != nil {
			return nil, err
		}
		msg = decodeStringLiteral(tok.Text, false)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SStaticAssert, Span: span, AssertCond: &cond, AssertMessage: msg}, nil
}

func (p *Parser) parseExprStatement() (*ast.Statement, error) {
	e, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SExpr, Span: e.Span, Expr: &e}, nil
}

func (p *Parser) parseLetOrConst() (*ast.Statement, error) {
	isConst := p.at(token.KwConst)
	start := p.cur.Span
	p.advance() // let | const

	mut := false
	if !isConst {
		mut = p.eat(token.KwMut)
	}

	var pattern *ast.Pattern
	var name string
	if p.at(token.LParen) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		pattern = &pat
	} else {
		tok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		name = tok.Text
	}

	var typeAnn *ast.TypeExpr
	if p.eat(token.Colon) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		typeAnn = &t
	}

	var value *ast.Expression
	if isConst {
		if _, err := p.expect(token.Assign); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		value = &v
	} else if p.eat(token.Assign) {
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		value = &v
	} else if typeAnn == nil {
		return nil, p.errorf(p.cur.Span, diagnostics.UnexpectedToken, "uninitialized `let` binding requires an explicit type")
	}

	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}

	kind := ast.SLet
	if isConst {
		kind = ast.SConst
	}
	return &ast.Statement{Kind: kind, Span: start, Name: name, Pattern: pattern,
		TypeAnnotation: typeAnn, Value: value, Mut: mut}, nil
}

func (p *Parser) parseFuncParams() ([]ast.FuncParam, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []ast.FuncParam
	for !p.at(token.RParen) {
		var fp ast.FuncParam
		fp.Span = p.cur.Span
		if p.at(token.Identifier) && p.cur.Text == "self" {
			p.advance()
			fp.SelfParam = true
			fp.Name = "self"
		} else {
			ref := p.eat(token.Amp)
			mut := p.eat(token.KwMut)
			name, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			fp.Name = name.Text
			fp.Mutable = mut
			fp.Reference = ref
			if p.at(token.Identifier) && p.cur.Text == "..." {
				p.advance()
				fp.Variadic = true
			}
			if p.eat(token.Colon) {
				t, err := p.parseType()
				if err != nil {
					return nil, err
				}
				fp.Type = &t
			}
		}
		fp.Span = source.Join(fp.Span, p.cur.Span)
		params = append(params, fp)
		if !p.eat(token.Comma) {
			break
		}
	}
	_, err := p.expect(token.RParen)
	return params, err
}

func (p *Parser) parseGenerics() ([]ast.GenericParam, error) {
	if !p.eat(token.Lt) {
		return nil, nil
	}
	var gens []ast.GenericParam
	for !p.atShr() && !p.at(token.Gt) {
		name, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		gp := ast.GenericParam{Name: name.Text}
		if p.eat(token.Colon) {
			bound, err := p.expect(token.Identifier)
			if err != nil {
				return nil, err
			}
			gp.Bound = bound.Text
		}
		gens = append(gens, gp)
		if !p.eat(token.Comma) {
			break
		}
	}
	return gens, p.closeGenericArgs()
}

func (p *Parser) parseFunc(externDecl bool) (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // func
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	gens, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	params, err := p.parseFuncParams()
	if err != nil {
		return nil, err
	}
	var ret *ast.TypeExpr
	if p.eat(token.Arrow) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ret = &t
	}
	stmt := &ast.Statement{Kind: ast.SFunc, Span: start, FuncName: name.Text, Generics: gens, Params: params, ReturnType: ret}
	if externDecl || p.at(token.Semicolon) {
		p.advance()
		return stmt, nil
	}
	p.ctx.push(&p.ctx.inFunction, true)
	body, err := p.parseBlock()
	p.ctx.pop(&p.ctx.inFunction)
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

func (p *Parser) parseStruct() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // struct
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.SStruct, Span: start, StructName: name.Text}
	if p.eat(token.Semicolon) {
		stmt.Opaque = true
		return stmt, nil
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	p.ctx.push(&p.ctx.inStruct, true)
	for !p.at(token.RBrace) {
		mutField := p.eat(token.KwMut)
		fname, err := p.expect(token.Identifier)
		if err != nil {
			p.ctx.pop(&p.ctx.inStruct)
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			p.ctx.pop(&p.ctx.inStruct)
			return nil, err
		}
		ftype, err := p.parseType()
		if err != nil {
			p.ctx.pop(&p.ctx.inStruct)
			return nil, err
		}
		stmt.Fields = append(stmt.Fields, ast.Field{Name: fname.Text, Type: ftype, Readonly: !mutField, Span: fname.Span})
		if !p.eat(token.Semicolon) {
			break
		}
	}
	p.ctx.pop(&p.ctx.inStruct)
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseEnum() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // enum
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.SEnum, Span: start, EnumName: name.Text}
	for !p.at(token.RBrace) {
		vname, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		variant := ast.EnumVariant{Name: vname.Text, Span: vname.Span}
		if p.eat(token.LParen) {
			for !p.at(token.RParen) {
				t, err := p.parseType()
				if err != nil {
					return nil, err
				}
				variant.Payload = append(variant.Payload, t)
				if !p.eat(token.Comma) {
					break
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}
		stmt.Variants = append(stmt.Variants, variant)
		if !p.eat(token.Comma) {
			break
		}
	}
	_, err = p.expect(token.RBrace)
	return stmt, err
}

func (p *Parser) parseTrait() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // trait
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.STrait, Span: start, TraitName: name.Text}
	p.ctx.push(&p.ctx.selfAllowed, true)
	for !p.at(token.RBrace) {
		attrs, err := p.parseAttributes()
		if err != nil {
			p.ctx.pop(&p.ctx.selfAllowed)
			return nil, err
		}
		m, err := p.parseFunc(true)
		if err != nil {
			p.ctx.pop(&p.ctx.selfAllowed)
			return nil, err
		}
		m.Attrs = attrs
		stmt.TraitMethods = append(stmt.TraitMethods, *m)
	}
	p.ctx.pop(&p.ctx.selfAllowed)
	_, err = p.expect(token.RBrace)
	return stmt, err
}

func (p *Parser) parseImpl() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // impl
	gens, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	target, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.SImpl, Span: start, ImplTarget: target, ImplGenerics: gens}
	p.ctx.push(&p.ctx.selfAllowed, true)
	for !p.at(token.RBrace) {
		m, err := p.parseFunc(false)
		if err != nil {
			p.ctx.pop(&p.ctx.selfAllowed)
			return nil, err
		}
		stmt.ImplMethods = append(stmt.ImplMethods, *m)
	}
	p.ctx.pop(&p.ctx.selfAllowed)
	_, err = p.expect(token.RBrace)
	return stmt, err
}

func (p *Parser) parseTypeAlias() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // type
	name, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	gens, err := p.parseGenerics()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	target, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.STypeAlias, Span: start, AliasName: name.Text, AliasGenerics: gens, AliasTarget: target}, nil
}

func (p *Parser) parseModuleBlock() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // module
	segs, err := p.parsePathSegmentsPlain()
	if err != nil {
		return nil, err
	}
	name := segs[len(segs)-1]
	if p.eat(token.Semicolon) {
		return &ast.Statement{Kind: ast.SModule, Span: start, ModuleName: name}, nil
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var body []ast.Statement
	for !p.at(token.RBrace) {
		s, err := p.parseTopLevelStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, *s)
	}
	_, err = p.expect(token.RBrace)
	return &ast.Statement{Kind: ast.SModule, Span: start, ModuleName: name, ModuleBody: body}, err
}

func (p *Parser) parseExternBlock() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // extern
	if p.at(token.String) {
		p.advance() // "C"
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	stmt := &ast.Statement{Kind: ast.SExternBlock, Span: start}
	for !p.at(token.RBrace) {
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		decl, err := p.parseFunc(true)
		if err != nil {
			return nil, err
		}
		decl.Attrs = attrs
		decl.ExternC = true
		stmt.ExternDecls = append(stmt.ExternDecls, *decl)
	}
	_, err := p.expect(token.RBrace)
	return stmt, err
}

// parseUsing parses a top-level selective re-export: `using a::b::c;`,
// `using a::b::{x, y};`, or `using a::b::*;` (§4.1).
func (p *Parser) parseUsing() (*ast.Statement, error) {
	start := p.cur.Span
	p.advance() // using
	var spec ast.ImportSpec
	var segs []string
	for {
		if p.at(token.LBrace) {
			p.advance()
			for !p.at(token.RBrace) {
				tok, err := p.expect(token.Identifier)
				if err != nil {
					return nil, err
				}
				spec.Using = append(spec.Using, tok.Text)
				if !p.eat(token.Comma) {
					break
				}
			}
			if _, err := p.expect(token.RBrace); err != nil {
				return nil, err
			}
			break
		}
		if p.at(token.Star) {
			p.advance()
			spec.Wildcard = true
			break
		}
		tok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		segs = append(segs, tok.Text)
		if !p.eat(token.ColonColon) {
			break
		}
	}
	spec.Path = segs
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return &ast.Statement{Kind: ast.SUsing, Span: start, Import: spec}, nil
}
