// Package lexer is a reference TokenStream producer conforming to the
// contract in spec §6. It is not part of the specified compiler core — the
// core treats lexing as an external collaborator — but the parser needs a
// real producer to run against, so this package supplies one, grounded on
// the hand-written character-at-a-time lexer idiom used throughout the
// example corpus.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/blanketsucks/language-sub000/internal/source"
	"github.com/blanketsucks/language-sub000/internal/token"
	"golang.org/x/text/unicode/norm"
)

// Lexer scans one source buffer into a token.TokenStream.
type Lexer struct {
	input        string
	sourceID     uint32
	position     int
	readPosition int
	ch           rune
}

// New constructs a Lexer over text already registered in sm under sourceID.
func New(text string, sourceID uint32) *Lexer {
	l := &Lexer{input: text, sourceID: sourceID}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') && l.ch != 0 {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// Next implements token.TokenStream.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()

	start := l.position
	sp := func() source.Span {
		return source.Span{Start: uint32(start), End: uint32(l.position), SourceID: l.sourceID}
	}

	switch {
	case l.ch == 0:
		return token.Token{Kind: token.EOF, Span: sp(), Text: ""}
	case isLetter(l.ch):
		return l.readIdentifier()
	case isDigit(l.ch):
		return l.readNumber()
	case l.ch == '"':
		return l.readString(false)
	case l.ch == '\'':
		return l.readChar_()
	case l.ch == 'r' && (l.peekChar() == '"'):
		l.readChar()
		return l.readString(true)
	}

	single := func(k token.Kind) token.Token {
		l.readChar()
		return token.Token{Kind: k, Span: sp(), Text: string(l.input[start:l.position])}
	}
	two := func(k token.Kind) token.Token {
		l.readChar()
		l.readChar()
		return token.Token{Kind: k, Span: sp(), Text: l.input[start:l.position]}
	}

	switch l.ch {
	case '(':
		return single(token.LParen)
	case ')':
		return single(token.RParen)
	case '{':
		return single(token.LBrace)
	case '}':
		return single(token.RBrace)
	case '[':
		return single(token.LBracket)
	case ']':
		return single(token.RBracket)
	case ',':
		return single(token.Comma)
	case ';':
		return single(token.Semicolon)
	case '~':
		return single(token.Tilde)
	case '?':
		return single(token.Question)
	case ':':
		if l.peekChar() == ':' {
			return two(token.ColonColon)
		}
		return single(token.Colon)
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				l.readChar()
				return token.Token{Kind: token.DotDotEq, Span: sp(), Text: l.input[start:l.position]}
			}
			l.readChar()
			return token.Token{Kind: token.DotDot, Span: sp(), Text: l.input[start:l.position]}
		}
		return single(token.Dot)
	case '=':
		if l.peekChar() == '=' {
			return two(token.EqEq)
		}
		if l.peekChar() == '>' {
			return two(token.FatArrow)
		}
		return single(token.Assign)
	case '+':
		if l.peekChar() == '=' {
			return two(token.PlusEq)
		}
		return single(token.Plus)
	case '-':
		if l.peekChar() == '>' {
			return two(token.Arrow)
		}
		if l.peekChar() == '=' {
			return two(token.MinusEq)
		}
		return single(token.Minus)
	case '*':
		if l.peekChar() == '=' {
			return two(token.StarEq)
		}
		return single(token.Star)
	case '/':
		if l.peekChar() == '=' {
			return two(token.SlashEq)
		}
		return single(token.Slash)
	case '%':
		if l.peekChar() == '=' {
			return two(token.PercentEq)
		}
		return single(token.Percent)
	case '!':
		if l.peekChar() == '=' {
			return two(token.Ne)
		}
		return single(token.Bang)
	case '&':
		if l.peekChar() == '&' {
			return two(token.AmpAmp)
		}
		if l.peekChar() == '=' {
			return two(token.AmpEq)
		}
		return single(token.Amp)
	case '|':
		if l.peekChar() == '|' {
			return two(token.PipePipe)
		}
		if l.peekChar() == '=' {
			return two(token.PipeEq)
		}
		return single(token.Pipe)
	case '^':
		if l.peekChar() == '=' {
			return two(token.CaretEq)
		}
		return single(token.Caret)
	case '<':
		if l.peekChar() == '<' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				l.readChar()
				return token.Token{Kind: token.ShlEq, Span: sp(), Text: l.input[start:l.position]}
			}
			l.readChar()
			return token.Token{Kind: token.Shl, Span: sp(), Text: l.input[start:l.position]}
		}
		if l.peekChar() == '=' {
			return two(token.Le)
		}
		return single(token.Lt)
	case '>':
		// §4.1: `>>` is recognized by pairing two `>` tokens so generic
		// argument lists (A::B<T, U>) do not collide with shift. Always
		// emit a single Gt here; the parser pairs two for Shr.
		if l.peekChar() == '=' {
			return two(token.Ge)
		}
		return single(token.Gt)
	}

	l.readChar()
	return token.Token{Kind: token.Illegal, Span: sp(), Text: l.input[start:l.position]}
}

func (l *Lexer) readIdentifier() token.Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	text := norm.NFC.String(l.input[start:l.position])
	sp := source.Span{Start: uint32(start), End: uint32(l.position), SourceID: l.sourceID}
	if kw, ok := token.Keywords[text]; ok {
		return token.Token{Kind: kw, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Identifier, Span: sp, Text: text}
}

var intSuffixes = []string{
	"i128", "u128", "i64", "u64", "i32", "u32", "i16", "u16", "i8", "u8",
	"usize", "isize", "f32", "f64",
}

func (l *Lexer) readNumber() token.Token {
	start := l.position
	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	for _, suf := range intSuffixes {
		if matchSuffix(l.input, l.position, suf) {
			if suf == "f32" || suf == "f64" {
				isFloat = true
			}
			for range suf {
				l.readChar()
			}
			break
		}
	}
	sp := source.Span{Start: uint32(start), End: uint32(l.position), SourceID: l.sourceID}
	kind := token.Integer
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Span: sp, Text: l.input[start:l.position]}
}

func matchSuffix(input string, pos int, suf string) bool {
	if pos+len(suf) > len(input) {
		return false
	}
	return input[pos:pos+len(suf)] == suf
}

func (l *Lexer) readString(raw bool) token.Token {
	start := l.position
	l.readChar() // consume opening quote
	for l.ch != '"' && l.ch != 0 {
		if !raw && l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar() // consume closing quote
	sp := source.Span{Start: uint32(start), End: uint32(l.position), SourceID: l.sourceID}
	kind := token.String
	if raw {
		kind = token.RawString
	}
	return token.Token{Kind: kind, Span: sp, Text: l.input[start:l.position]}
}

func (l *Lexer) readChar_() token.Token {
	start := l.position
	l.readChar() // consume opening quote
	if l.ch == '\\' {
		l.readChar()
	}
	l.readChar()
	l.readChar() // consume closing quote
	sp := source.Span{Start: uint32(start), End: uint32(l.position), SourceID: l.sourceID}
	return token.Token{Kind: token.Char, Span: sp, Text: l.input[start:l.position]}
}
