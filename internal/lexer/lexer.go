package lexer

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	EOF Kind = iota
	Amp
	Pipe
	Dollar
	Great
	Less
	Semi
	Newline
	Symbol
)

var kindNames = [...]string{
	EOF:     "EOF",
	Amp:     "&",
	Pipe:    "|",
	Dollar:  "$",
	Great:   ">",
	Less:    "<",
	Semi:    ";",
	Newline: "newline",
	Symbol:  "symbol",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical unit. Only Symbol tokens carry Text.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}

func (t Token) Len() int {
	return len(t.Text)
}

// String renders the token the way it appeared in the input, which is what
// error messages quote back to the user.
func (t Token) String() string {
	if t.Kind == Symbol {
		return t.Text
	}
	return t.Kind.String()
}

var (
	ErrUnterminatedQuote = errors.New("unterminated quote")
	ErrUnexpectedChar    = errors.New("unexpected character")
)

type Error struct {
	Err  error
	Pos  int
	Char byte
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrUnterminatedQuote) {
		return fmt.Sprintf("%v %c at column %d", e.Err, e.Char, e.Pos+1)
	}
	return fmt.Sprintf("%v %q at column %d", e.Err, e.Char, e.Pos+1)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Lexer turns one line of input, plus any continuation lines fed to it,
// into a stream of tokens.
type Lexer struct {
	input     string
	pos       int
	lineStart bool
	done      bool
}

func New(input string) *Lexer {
	return &Lexer{input: input, lineStart: true}
}

// Feed appends a continuation line. The lexer is no longer done afterwards.
func (l *Lexer) Feed(more string) {
	l.input += more
	l.lineStart = true
	l.done = false
}

// Done reports whether the EOF token has been produced.
func (l *Lexer) Done() bool {
	return l.done
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	return l.input[l.pos], true
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\r'
}

func isDelim(c byte) bool {
	switch c {
	case '&', '|', '<', '>', ';', '\n', '$':
		return true
	}
	return isBlank(c)
}

func isIllegal(c byte) bool {
	return (c < 0x20 && c != '\n' && !isBlank(c)) || c == 0x7f
}

var operators = map[byte]Kind{
	'&':  Amp,
	'|':  Pipe,
	'$':  Dollar,
	'>':  Great,
	'<':  Less,
	';':  Semi,
	'\n': Newline,
}

func (l *Lexer) Next() (Token, error) {
	for {
		c, ok := l.peek()
		if !ok || !isBlank(c) {
			break
		}
		l.pos++
	}

	c, ok := l.peek()
	if !ok {
		l.done = true
		return Token{Kind: EOF, Pos: l.pos}, nil
	}

	if c == '#' && l.lineStart {
		for c, ok = l.peek(); ok && c != '\n'; c, ok = l.peek() {
			l.pos++
		}
		return l.Next()
	}

	if kind, isOp := operators[c]; isOp {
		tok := Token{Kind: kind, Pos: l.pos}
		l.pos++
		l.lineStart = kind == Newline
		return tok, nil
	}

	l.lineStart = false
	return l.symbol()
}

func (l *Lexer) symbol() (Token, error) {
	start := l.pos
	var sb strings.Builder

	for {
		c, ok := l.peek()
		if !ok || isDelim(c) {
			break
		}
		if isIllegal(c) {
			return Token{}, &Error{Err: ErrUnexpectedChar, Pos: l.pos, Char: c}
		}

		if c != '\'' && c != '"' {
			sb.WriteByte(c)
			l.pos++
			continue
		}

		end := strings.IndexByte(l.input[l.pos+1:], c)
		nl := strings.IndexByte(l.input[l.pos+1:], '\n')
		if end < 0 || (nl >= 0 && nl < end) {
			return Token{}, &Error{Err: ErrUnterminatedQuote, Pos: l.pos, Char: c}
		}
		sb.WriteString(l.input[l.pos+1 : l.pos+1+end])
		l.pos += end + 2
	}

	return Token{Kind: Symbol, Text: sb.String(), Pos: start}, nil
}

// All drains the lexer, mostly useful for tests and debugging.
func (l *Lexer) All() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}
