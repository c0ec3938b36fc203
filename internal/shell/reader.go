package shell

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/abiosoft/readline"
	"golang.org/x/term"
)

// LineReader supplies input one line at a time. ReadLine returns io.EOF once
// the input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// NewReader picks an interactive line editor when in is a terminal and a
// plain scanner otherwise.
func NewReader(in *os.File, historyFile string, historyLimit int) (LineReader, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return NewScanReader(in), nil
	}
	return NewEditReader(historyFile, historyLimit)
}

type editReader struct {
	rl      *readline.Instance
	history bool
}

// NewEditReader reads from the controlling terminal with line editing.
// Entered lines are appended to historyFile unless it is empty.
func NewEditReader(historyFile string, historyLimit int) (LineReader, error) {
	if historyLimit == 0 {
		historyLimit = -1
	}
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:            historyFile,
		HistoryLimit:           historyLimit,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		return nil, err
	}
	return &editReader{rl: rl, history: historyFile != ""}, nil
}

func (r *editReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		// Interrupt clears the line.
		return "", nil
	case err != nil:
		return "", err
	}

	if r.history && line != "" {
		if err := r.rl.SaveHistory(line); err != nil {
			return line, &HistoryError{Err: err}
		}
	}
	return line, nil
}

func (r *editReader) Close() error {
	return r.rl.Close()
}

// HistoryError means a line was read but could not be recorded.
type HistoryError struct {
	Err error
}

func (e *HistoryError) Error() string {
	return "history: " + e.Err.Error()
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

type scanReader struct {
	s *bufio.Scanner
}

// NewScanReader reads newline separated lines from r without prompting.
func NewScanReader(r io.Reader) LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &scanReader{s: s}
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.s.Text(), nil
}

func (r *scanReader) Close() error {
	return nil
}
