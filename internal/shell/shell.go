package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"smash/internal/config"
	"smash/internal/execute"
	"smash/internal/lexer"
	"smash/internal/parser"
	"smash/internal/prompt"
)

// StatusSyntax is the status left behind by a line that failed to lex or
// parse.
const StatusSyntax = 2

type Option func(*Shell)

// WithDump prints every parsed pipeline to stderr before running it.
func WithDump(dump bool) Option {
	return func(s *Shell) { s.dump = dump }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// Shell is the read-eval loop around an Executor. A nil LineReader is allowed
// for one-shot use through RunLine.
type Shell struct {
	cfg    *config.Configuration
	exec   *execute.Executor
	in     LineReader
	log    *slog.Logger
	dump   bool
	status int
}

func New(cfg *config.Configuration, exec *execute.Executor, in LineReader, opts ...Option) *Shell {
	s := &Shell{
		cfg:  cfg,
		exec: exec,
		in:   in,
		log:  exec.Log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status is the status of the last statement run.
func (s *Shell) Status() int {
	return s.status
}

func (s *Shell) prompt() string {
	return prompt.Render(s.cfg.Prompt, prompt.Current(), s.cfg.Color)
}

// Run reads and executes lines until end of input or exit, and returns the
// status the shell should exit with.
func (s *Shell) Run() int {
	stop := s.trapInterrupts()
	defer stop()

	for {
		s.exec.Jobs.Sweep()

		line, err := s.in.ReadLine(s.prompt())
		var herr *HistoryError
		switch {
		case errors.Is(err, io.EOF):
			s.log.Info("end of input", "status", s.status)
			return s.status
		case errors.As(err, &herr):
			s.report("read", err)
		case err != nil:
			s.report("read", err)
			return 1
		}

		if code, exit := s.RunLine(line); exit {
			return code
		}
	}
}

// trapInterrupts keeps SIGINT and SIGQUIT from the terminal from killing
// the shell. Children get the default dispositions back when they exec.
func (s *Shell) trapInterrupts() func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				s.log.Debug("signal ignored", "signal", sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (s *Shell) continuation() (string, bool) {
	if s.in == nil {
		return "", false
	}
	line, err := s.in.ReadLine(s.cfg.ContinuationPrompt)
	if err != nil && !errors.As(err, new(*HistoryError)) {
		return "", false
	}
	return line, true
}

// RunLine executes each statement of line in turn. A statement that fails to
// lex or parse is reported and the rest of the line is dropped. The second
// result is true when exit was requested.
func (s *Shell) RunLine(line string) (int, bool) {
	p := parser.New(lexer.New(line),
		parser.WithMaxArgs(s.cfg.MaxArgs),
		parser.WithMaxCommands(s.cfg.MaxCommands),
		parser.WithContinuation(s.continuation),
	)

	for {
		pl, err := p.Statement()
		switch {
		case errors.Is(err, io.EOF):
			return s.status, false
		case err != nil:
			s.reportSyntax(err)
			s.status = StatusSyntax
			return s.status, false
		case pl == nil:
			continue
		}

		if s.dump {
			pl.Debug(s.exec.Stderr)
		}
		s.log.Debug("running", "pipeline", pl.String())

		out, err := s.exec.Execute(pl)
		s.status = out.Status

		var exitErr *execute.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, true
		}
		if err != nil {
			s.report("run", err)
			if s.status == 0 {
				s.status = 1
			}
		}
	}
}

func (s *Shell) reportSyntax(err error) {
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		s.report("read", err)
		return
	}
	s.report("parse", err)
}

func (s *Shell) report(kind string, err error) {
	fmt.Fprintf(s.exec.Stderr, "smash: %s error: %v\n", kind, err)
	s.log.Warn(kind+" error", "error", err)
}
