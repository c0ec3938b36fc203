package execute

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"smash/internal/jobs"
	"smash/internal/parser"
)

var ErrBuiltinInPipeline = errors.New("builtin cannot be part of a pipeline")

// ExitError asks the caller to terminate the shell with Code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

type builtin func(e *Executor, args []string, stdout io.Writer) (int, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"cd":   cd,
		"exit": exit,
		"jobs": listJobs,
	}
}

// IsBuiltin reports whether name runs inside the shell process.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func (e *Executor) runBuiltin(b builtin, cmd *parser.Command) (Outcome, error) {
	stdin, stdout := e.Stdin, e.Stdout
	redirects, err := e.openRedirects(cmd, &stdin, &stdout)
	if err != nil {
		return Outcome{Status: 1}, err
	}
	defer closeQuiet(redirects...)

	status, err := b(e, cmd.Args, stdout)
	return Outcome{Status: status}, err
}

// PrevDir is the directory cd was in before its last successful change.
func (e *Executor) PrevDir() string {
	return e.prevDir
}

func cd(e *Executor, args []string, stdout io.Writer) (int, error) {
	var dir string
	switch len(args) {
	case 1:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(e.Stderr, "smash: cd: %v\n", err)
			return 0, nil
		}
		dir = home
	case 2:
		dir = args[1]
	default:
		fmt.Fprintln(e.Stderr, "smash: cd: too many arguments")
		return 0, nil
	}

	back := dir == "-"
	if back {
		if e.prevDir == "" {
			fmt.Fprintln(e.Stderr, "smash: cd: OLDPWD not set")
			return 0, nil
		}
		dir = e.prevDir
	}

	cwd, cwdErr := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(e.Stderr, "smash: cd: %s: %v\n", dir, unwrapPath(err))
		return 0, nil
	}
	if cwdErr == nil {
		e.prevDir = cwd
		_ = os.Setenv("OLDPWD", cwd)
	}
	if wd, err := os.Getwd(); err == nil {
		_ = os.Setenv("PWD", wd)
	}
	e.Log.Debug("changed directory", "from", cwd, "to", dir)

	if back {
		fmt.Fprintln(stdout, dir)
	}
	return 0, nil
}

func exit(e *Executor, args []string, _ io.Writer) (int, error) {
	switch len(args) {
	case 1:
		return 0, &ExitError{Code: 0}
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(e.Stderr, "smash: exit: %s: numeric argument required\n", args[1])
			return 2, &ExitError{Code: 2}
		}
		return n & 0xff, &ExitError{Code: n & 0xff}
	default:
		fmt.Fprintln(e.Stderr, "smash: exit: too many arguments")
		return 1, nil
	}
}

func listJobs(e *Executor, args []string, stdout io.Writer) (int, error) {
	opts := getopt.New()
	opts.SetProgram("jobs")
	opts.SetParameters("[jobspec ...]")
	long := opts.Bool('l', "list process IDs with each stage")
	pidsOnly := opts.Bool('p', "list process IDs only")

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(e.Stderr, "smash: jobs: %v\n", err)
		opts.PrintUsage(e.Stderr)
		return 2, nil
	}

	var slots []int
	for _, spec := range opts.Args() {
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
		if _, ok := e.Jobs.Get(n); err != nil || !ok {
			fmt.Fprintf(e.Stderr, "smash: jobs: %s: no such job\n", spec)
			return 1, nil
		}
		slots = append(slots, n)
	}

	format := jobs.FormatShort
	switch {
	case *pidsOnly:
		format = jobs.FormatPids
	case *long:
		format = jobs.FormatLong
	}
	e.Jobs.List(stdout, format, slots...)
	return 0, nil
}
