// Package parser implements the hand-written recursive-descent, Pratt
// expression parser described in spec §4.1, grounded on the production
// split used throughout funxy/internal/parser (one file per syntactic
// area) but rebuilt against the source language's grammar.
package parser

import (
	"fmt"

	"github.com/blanketsucks/language-sub000/internal/ast"
	"github.com/blanketsucks/language-sub000/internal/diagnostics"
	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/token"
)

// contextFlags is the §4.9 parser state machine: `in_function`,
// `in_struct`, `in_loop`, `self_allowed`. Each is a stack so nested
// constructs restore the enclosing altitude on exit.
type contextFlags struct {
	inFunction []bool
	inStruct   []bool
	inLoop     []bool
	selfAllowed []bool
}

func (c *contextFlags) push(stack *[]bool, v bool) {
	*stack = append(*stack, v)
}
func (c *contextFlags) pop(stack *[]bool) {
	*stack = (*stack)[:len(*stack)-1]
}
func top(stack []bool) bool {
	if len(stack) == 0 {
		return false
	}
	return stack[len(stack)-1]
}

// Parser is a pull-parser over a token.TokenStream (§4.1).
type Parser struct {
	stream token.TokenStream
	cur    token.Token
	peek   token.Token
	file   string

	ctx contextFlags

	// noStructLiterals suppresses `Path { ... }` struct-literal parsing
	// while parsing an if/while/for/match condition, so `if cond { ... }`
	// is not misread as a struct constructor named `cond`.
	noStructLiterals bool
}

// New constructs a Parser over ts, whose tokens belong to the named file
// (used only for Program.File / diagnostics).
func New(ts token.TokenStream, file string) *Parser {
	p := &Parser{stream: ts, file: file}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.stream.Next()
}

func (p *Parser) at(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekAt(k token.Kind) bool { return p.peek.Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, &diagnostics.Error{
			Kind: diagnostics.UnexpectedToken, Span: p.cur.Span,
			Message: fmt.Sprintf("expected %s, found %s (%q)", k, p.cur.Kind, p.cur.Text),
		}
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *Parser) eat(k token.Kind) bool {
	if p.cur.Kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errorf(span source.Span, kind diagnostics.Kind, format string, args ...any) error {
	return diagnostics.New(kind, span, format, args...)
}

// ParseProgram parses an entire source file into an ast.Program. It does
// not attempt recovery: at the first error it returns the Program built so
// far together with that error, and pipeline.RunOne stops there.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{File: p.file}

	for !p.at(token.EOF) {
		if p.at(token.KwModule) {
			path, err := p.parseModulePath()
			if err != nil {
				return prog, err
			}
			prog.ModulePath = path
			if _, err := p.expect(token.Semicolon); err != nil {
				return prog, err
			}
			continue
		}
		if p.at(token.KwImport) || p.at(token.KwFrom) {
			spec, err := p.parseImport()
			if err != nil {
				return prog, err
			}
			prog.Imports = append(prog.Imports, spec)
			continue
		}
		stmt, err := p.parseTopLevelStatement()
		if err != nil {
			return prog, err
		}
		prog.Statements = append(prog.Statements, *stmt)
	}
	return prog, nil
}

func (p *Parser) parseModulePath() ([]string, error) {
	p.advance() // `module`
	return p.parsePathSegmentsPlain()
}

func (p *Parser) parsePathSegmentsPlain() ([]string, error) {
	var segs []string
	tok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	segs = append(segs, tok.Text)
	for p.at(token.ColonColon) {
		p.advance()
		tok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		segs = append(segs, tok.Text)
	}
	return segs, nil
}

func (p *Parser) parseImport() (ast.ImportSpec, error) {
	var spec ast.ImportSpec
	if p.at(token.KwFrom) {
		p.advance()
		path, err := p.parsePathSegmentsPlain()
		if err != nil {
			return spec, err
		}
		spec.Path = path
		if _, err := p.expect(token.KwUsing); err != nil {
			return spec, err
		}
		if p.eat(token.Star) {
			spec.Wildcard = true
		} else if p.eat(token.LBrace) {
			for !p.at(token.RBrace) {
				tok, err := p.expect(token.Identifier)
				if err != nil {
					return spec, err
				}
				spec.Using = append(spec.Using, tok.Text)
				if !p.eat(token.Comma) {
					break
				}
			}
			if _, err := p.expect(token.RBrace); err != nil {
				return spec, err
			}
		}
		_, err = p.expect(token.Semicolon)
		return spec, err
	}

	p.advance() // `import`
	path, err := p.parsePathSegmentsPlain()
	if err != nil {
		return spec, err
	}
	spec.Path = path
	if p.at(token.KwAs) {
		p.advance()
		tok, err := p.expect(token.Identifier)
		if err != nil {
			return spec, err
		}
		spec.Alias = tok.Text
	}
	_, err = p.expect(token.Semicolon)
	return spec, err
}

// parseAttributes parses zero or more `![name(args)]` blocks preceding a
// declaration (§4.1). Unknown names fail fast with UnknownAttribute.
func (p *Parser) parseAttributes() (ast.Attributes, error) {
	var attrs ast.Attributes
	for p.at(token.Bang) && p.peekAt(token.LBracket) {
		start := p.cur.Span
		p.advance() // !
		p.advance() // [
		nameTok, err := p.expect(token.Identifier)
		if err != nil {
			return attrs, err
		}
		if !ast.KnownAttributes[nameTok.Text] {
			return attrs, p.errorf(nameTok.Span, diagnostics.UnknownAttribute, "unknown attribute %q", nameTok.Text)
		}
		attr := ast.Attribute{Name: nameTok.Text}
		if p.eat(token.LParen) {
			for !p.at(token.RParen) {
				var arg ast.AttributeArg
				if p.at(token.Identifier) && p.peekAt(token.Colon) {
					key := p.cur.Text
					p.advance()
					p.advance()
					arg.Key = key
				}
				val, err := p.parseAttrArgValue()
				if err != nil {
					return attrs, err
				}
				arg.Value = val
				attr.Args = append(attr.Args, arg)
				if !p.eat(token.Comma) {
					break
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return attrs, err
			}
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return attrs, err
		}
		attr.Span = source.Join(start, p.cur.Span)
		attrs.List = append(attrs.List, attr)
	}
	return attrs, nil
}

func (p *Parser) parseAttrArgValue() (string, error) {
	tok := p.cur
	switch tok.Kind {
	case token.String, token.Identifier, token.Integer, token.Float, token.KwTrue, token.KwFalse:
		p.advance()
		return tok.Text, nil
	default:
		return "", p.errorf(tok.Span, diagnostics.UnexpectedToken, "expected attribute argument, found %s", tok.Kind)
	}
}
