package parser

import (
	"errors"
	"fmt"
	"io"

	"smash/internal/lexer"
)

const (
	DefaultMaxArgs     = 1024
	DefaultMaxCommands = 256
)

var (
	ErrUnexpectedToken = errors.New("unexpected token")
	ErrTooManyArgs     = errors.New("too many arguments")
	ErrTooManyCommands = errors.New("command list overflow")
)

type Error struct {
	Err   error
	Token lexer.Token
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrUnexpectedToken) {
		return fmt.Sprintf("%v '%s'", e.Err, e.Token)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Continuation fetches one more line of input while a statement is still
// open, e.g. after a trailing pipe. It returns false when no more input is
// available.
type Continuation func() (string, bool)

type Option func(*Parser)

func WithMaxArgs(n int) Option {
	return func(p *Parser) { p.maxArgs = n }
}

func WithMaxCommands(n int) Option {
	return func(p *Parser) { p.maxCommands = n }
}

func WithContinuation(c Continuation) Option {
	return func(p *Parser) { p.more = c }
}

// Parser is a recursive descent parser over a lexer's token stream:
//
//	statement   := pipeline (AMP | SEMI | NEWLINE | EOF)
//	pipeline    := redirected (PIPE redirected)*
//	redirected  := directive ((LT SYMBOL) | (GT SYMBOL))*
//	directive   := SYMBOL+
type Parser struct {
	lex         *lexer.Lexer
	tok         lexer.Token
	maxArgs     int
	maxCommands int
	more        Continuation
}

func New(lex *lexer.Lexer, opts ...Option) *Parser {
	p := &Parser{
		lex:         lex,
		maxArgs:     DefaultMaxArgs,
		maxCommands: DefaultMaxCommands,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func unexpected(tok lexer.Token) error {
	return &Error{Err: ErrUnexpectedToken, Token: tok}
}

// Statement parses the next statement. It returns a nil Pipeline and nil
// error for an empty statement and io.EOF once the input is exhausted.
func (p *Parser) Statement() (*Pipeline, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case lexer.EOF:
		return nil, io.EOF
	case lexer.Semi, lexer.Newline:
		return nil, nil
	}

	pl, err := p.pipeline()
	if err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case lexer.Amp:
		pl.setBackground()
	case lexer.Semi, lexer.Newline, lexer.EOF:
	default:
		return nil, unexpected(p.tok)
	}

	return pl, nil
}

func (p *Parser) pipeline() (*Pipeline, error) {
	pl := &Pipeline{}

	for {
		if len(pl.Commands) >= p.maxCommands {
			return nil, &Error{Err: ErrTooManyCommands, Token: p.tok}
		}

		cmd, err := p.redirected()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)

		if p.tok.Kind != lexer.Pipe {
			return pl, nil
		}

		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.continuation(); err != nil {
			return nil, err
		}
	}
}

// continuation keeps a statement open across line breaks after a pipe.
func (p *Parser) continuation() error {
	for p.more != nil && (p.tok.Kind == lexer.Newline || p.tok.Kind == lexer.EOF) {
		line, ok := p.more()
		if !ok {
			return unexpected(p.tok)
		}
		p.lex.Feed(line)
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) redirected() (*Command, error) {
	cmd, err := p.directive()
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == lexer.Less || p.tok.Kind == lexer.Great {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != lexer.Symbol {
			return nil, unexpected(p.tok)
		}

		target, seen := &cmd.Output, &cmd.HasOutput
		if op.Kind == lexer.Less {
			target, seen = &cmd.Input, &cmd.HasInput
		}
		if *seen {
			return nil, unexpected(op)
		}
		*target, *seen = p.tok.Text, true

		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

// directive expects the current token to be the program name.
func (p *Parser) directive() (*Command, error) {
	if p.tok.Kind != lexer.Symbol {
		return nil, unexpected(p.tok)
	}

	cmd := &Command{}
	for p.tok.Kind == lexer.Symbol {
		if len(cmd.Args) >= p.maxArgs {
			return nil, &Error{Err: ErrTooManyArgs, Token: p.tok}
		}
		cmd.Args = append(cmd.Args, p.tok.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

// ParseLine parses every statement of a line. Empty statements are dropped.
func ParseLine(line string, opts ...Option) ([]*Pipeline, error) {
	p := New(lexer.New(line), opts...)

	var out []*Pipeline
	for {
		pl, err := p.Statement()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if pl != nil {
			out = append(out, pl)
		}
	}
}
