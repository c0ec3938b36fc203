package execute

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"smash/internal/jobs"
	"smash/internal/parser"
)

const (
	StatusNotFound      = 127
	StatusNotExecutable = 126
)

// ResourceError is a failure of the shell itself while wiring up a
// pipeline: creating a pipe, opening a redirect target or forking.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// ProgramError means a stage's program could not be started.
type ProgramError struct {
	Name string
	Err  error
}

func (e *ProgramError) Error() string {
	if errors.Is(e.Err, exec.ErrNotFound) {
		return fmt.Sprintf("%s: command not found", e.Name)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

func (e *ProgramError) Status() int {
	if errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, syscall.ENOENT) {
		return StatusNotFound
	}
	return StatusNotExecutable
}

// Outcome is the result of running one pipeline.
type Outcome struct {
	// Status of the last stage, for foreground pipelines and builtins.
	Status int
	Pids   []int
	// Job is the slot assigned to a background pipeline, 0 otherwise.
	Job int
}

// Executor runs parsed pipelines. It holds the state that outlives a single
// input line: the job table and the previous working directory.
type Executor struct {
	Stdin, Stdout, Stderr *os.File
	Jobs                  *jobs.Table
	Log                   *slog.Logger

	prevDir string
}

func New(stdin, stdout, stderr *os.File, table *jobs.Table, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Jobs:   table,
		Log:    log,
	}
}

func (e *Executor) Execute(p *parser.Pipeline) (Outcome, error) {
	if len(p.Commands) > 1 {
		for _, c := range p.Commands {
			if IsBuiltin(c.Name()) {
				return Outcome{Status: 1}, fmt.Errorf("%s: %w", c.Name(), ErrBuiltinInPipeline)
			}
		}
	}
	if b, ok := builtins[p.Commands[0].Name()]; ok {
		return e.runBuiltin(b, p.Commands[0])
	}

	procs, statuses, err := e.spawn(p)

	pids := make([]int, len(procs))
	for i, proc := range procs {
		pids[i] = proc.Pid
	}

	if p.Background {
		out := Outcome{Pids: pids}
		if len(procs) > 0 {
			out.Job = e.Jobs.Add(stagesText(p), procs)
		}
		return out, err
	}

	for i, c := range p.Commands {
		if c.Pid == 0 {
			continue
		}
		st, werr := jobs.Wait(c.Pid)
		if werr != nil {
			e.Log.Warn("wait failed", "pid", c.Pid, "error", werr)
			continue
		}
		statuses[i] = st.ExitCode()
		e.Log.Debug("stage exited", "pid", c.Pid, "status", st.String())
	}

	out := Outcome{Status: statuses[len(statuses)-1], Pids: pids}
	if err != nil {
		out.Status = 1
	}
	return out, err
}

func stagesText(p *parser.Pipeline) string {
	stages := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		stages[i] = c.String()
	}
	return strings.Join(stages, " | ")
}

func closeQuiet(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// spawn starts one process per stage, left to right. Every descriptor the
// parent opens for a stage is closed as soon as that stage has been started,
// so a finished writer always delivers EOF downstream. On a resource error
// the remaining stages are skipped; stages already started keep running.
func (e *Executor) spawn(p *parser.Pipeline) ([]jobs.Proc, []int, error) {
	var (
		procs    []jobs.Proc
		statuses = make([]int, len(p.Commands))
		prevRead *os.File
	)

	for i, cmd := range p.Commands {
		var nextRead, write *os.File
		if i < len(p.Commands)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeQuiet(prevRead)
				return procs, statuses, &ResourceError{Op: "pipe", Err: err}
			}
			nextRead, write = r, w
		}

		stdin, stdout := e.Stdin, e.Stdout
		if prevRead != nil {
			stdin = prevRead
		}
		if write != nil {
			stdout = write
		}

		redirects, err := e.openRedirects(cmd, &stdin, &stdout)
		if err != nil {
			closeQuiet(prevRead, nextRead, write)
			return procs, statuses, err
		}

		pid, err := e.start(cmd, stdin, stdout)
		closeQuiet(redirects...)
		closeQuiet(prevRead, write)
		prevRead = nextRead

		var progErr *ProgramError
		switch {
		case errors.As(err, &progErr):
			fmt.Fprintf(e.Stderr, "smash: %v\n", progErr)
			statuses[i] = progErr.Status()
			continue
		case err != nil:
			closeQuiet(prevRead)
			return procs, statuses, err
		}

		cmd.Pid = pid
		procs = append(procs, jobs.Proc{Pid: pid, Command: cmd.String()})
		e.Log.Debug("stage started", "pid", pid, "stage", i, "args", cmd.Args)
	}

	return procs, statuses, nil
}

// openRedirects applies a stage's own "<file" and ">file" on top of whatever
// the pipeline wiring chose, returning the files it opened.
func (e *Executor) openRedirects(cmd *parser.Command, stdin, stdout **os.File) ([]*os.File, error) {
	var opened []*os.File

	if cmd.HasInput {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return nil, &ResourceError{Op: "open", Path: cmd.Input, Err: unwrapPath(err)}
		}
		opened = append(opened, f)
		*stdin = f
	}

	if cmd.HasOutput {
		f, err := os.OpenFile(cmd.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			closeQuiet(opened...)
			return nil, &ResourceError{Op: "open", Path: cmd.Output, Err: unwrapPath(err)}
		}
		opened = append(opened, f)
		*stdout = f
	}

	return opened, nil
}

func unwrapPath(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// start replaces a forked child with the stage's program. Only the three
// standard descriptors are handed over; everything else the shell holds is
// close-on-exec, so no stray pipe end survives into the child, whether the
// exec succeeds or not.
func (e *Executor) start(cmd *parser.Command, stdin, stdout *os.File) (int, error) {
	path, err := exec.LookPath(cmd.Name())
	if err != nil && !errors.Is(err, exec.ErrDot) {
		return 0, &ProgramError{Name: cmd.Name(), Err: unwrapPath(unwrapLookup(err))}
	}

	pid, err := syscall.ForkExec(path, cmd.Args, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{stdin.Fd(), stdout.Fd(), e.Stderr.Fd()},
	})
	switch {
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ENOMEM):
		return 0, &ResourceError{Op: "fork", Err: err}
	case err != nil:
		return 0, &ProgramError{Name: cmd.Name(), Err: err}
	}

	return pid, nil
}

func unwrapLookup(err error) error {
	var ee *exec.Error
	if errors.As(err, &ee) {
		return ee.Err
	}
	return err
}
