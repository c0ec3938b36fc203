package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smash/internal/config"
	"smash/internal/execute"
	"smash/internal/jobs"
)

type harness struct {
	shell          *Shell
	exec           *execute.Executor
	stdout, stderr *os.File
	dir            string
}

// newHarness runs input through a shell whose output goes to temp files. A
// nil table gets a fresh one.
func newHarness(t *testing.T, input string, table *jobs.Table, opts ...Option) *harness {
	t.Helper()
	dir := t.TempDir()

	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() {
		stdin.Close()
		stdout.Close()
		stderr.Close()
	})

	if table == nil {
		table = jobs.NewTable(&bytes.Buffer{})
	}
	exec := execute.New(stdin, stdout, stderr, table, nil)
	return &harness{
		shell:  New(config.Default(), exec, NewScanReader(strings.NewReader(input)), opts...),
		exec:   exec,
		stdout: stdout,
		stderr: stderr,
		dir:    dir,
	}
}

func contents(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func TestRunLineStatements(t *testing.T) {
	h := newHarness(t, "", nil)
	code, exit := h.shell.RunLine("echo a; echo b ;; echo c")
	assert.False(t, exit)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a\nb\nc\n", contents(t, h.stdout))
}

func TestRunLineParseErrorChangesNothing(t *testing.T) {
	h := newHarness(t, "", nil)
	before, err := os.Getwd()
	require.NoError(t, err)

	code, exit := h.shell.RunLine("| ls")
	assert.False(t, exit)
	assert.Equal(t, StatusSyntax, code)
	assert.Equal(t, "smash: parse error: unexpected token '|'\n", contents(t, h.stderr))
	assert.Empty(t, contents(t, h.stdout))
	assert.Zero(t, h.exec.Jobs.Len())

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunLineDiscardsRestAfterError(t *testing.T) {
	h := newHarness(t, "", nil)
	h.shell.RunLine("echo a; echo b > ; echo c")
	assert.Equal(t, "a\n", contents(t, h.stdout))
	assert.Contains(t, contents(t, h.stderr), "smash: parse error: unexpected token ';'")
}

func TestRunLineReadError(t *testing.T) {
	h := newHarness(t, "", nil)
	code, _ := h.shell.RunLine(`echo "open`)
	assert.Equal(t, StatusSyntax, code)
	assert.Contains(t, contents(t, h.stderr), "smash: read error: unterminated quote")
	assert.Empty(t, contents(t, h.stdout))
}

func TestRunLineResourceErrorContinues(t *testing.T) {
	h := newHarness(t, "", nil)
	missing := filepath.Join(h.dir, "missing")

	code, exit := h.shell.RunLine("cat < " + missing + "; echo after")
	assert.False(t, exit)
	assert.Equal(t, 0, code)
	assert.Contains(t, contents(t, h.stderr), "smash: run error: open "+missing)
	assert.Equal(t, "after\n", contents(t, h.stdout))
}

func TestRunLineBuiltinInPipeline(t *testing.T) {
	h := newHarness(t, "", nil)
	code, _ := h.shell.RunLine("jobs | cat")
	assert.Equal(t, 1, code)
	assert.Contains(t, contents(t, h.stderr), "smash: run error: jobs: builtin cannot be part of a pipeline")
}

func TestRunLineExit(t *testing.T) {
	h := newHarness(t, "", nil)
	code, exit := h.shell.RunLine("echo a; exit 3; echo b")
	assert.True(t, exit)
	assert.Equal(t, 3, code)
	assert.Equal(t, "a\n", contents(t, h.stdout))
}

func TestRunStopsAtEOFWithLastStatus(t *testing.T) {
	h := newHarness(t, "echo one\nsh -c 'exit 5'\n", nil)
	assert.Equal(t, 5, h.shell.Run())
	assert.Equal(t, "one\n", contents(t, h.stdout))
}

func TestRunExit(t *testing.T) {
	h := newHarness(t, "exit 4\necho never\n", nil)
	assert.Equal(t, 4, h.shell.Run())
	assert.Empty(t, contents(t, h.stdout))
}

func TestRunContinuesAfterTrailingPipe(t *testing.T) {
	h := newHarness(t, "printf 'b\\na\\n' |\n\nsort\nexit\n", nil)
	assert.Equal(t, 0, h.shell.Run())
	assert.Equal(t, "a\nb\n", contents(t, h.stdout))
	assert.Empty(t, contents(t, h.stderr))
}

func TestRunTrailingPipeAtEOF(t *testing.T) {
	h := newHarness(t, "echo hi |", nil)
	assert.Equal(t, StatusSyntax, h.shell.Run())
	assert.Contains(t, contents(t, h.stderr), "smash: parse error: unexpected token 'EOF'")
}

func TestDump(t *testing.T) {
	h := newHarness(t, "", nil, WithDump(true))
	h.shell.RunLine("echo x > " + filepath.Join(h.dir, "out"))
	dump := contents(t, h.stderr)
	assert.True(t, strings.HasPrefix(dump, "Pipeline {\n"), dump)
	assert.Contains(t, dump, "name: echo")
}

type reapAll struct{}

func (reapAll) Reap(int) (bool, jobs.Status, error) {
	return true, jobs.Status{}, nil
}

func TestRunSweepsBeforePrompt(t *testing.T) {
	notices := &bytes.Buffer{}
	table := jobs.NewTable(notices, jobs.WithWaiter(reapAll{}))
	table.Add("sleep 1", []jobs.Proc{{Pid: 4000001, Command: "sleep 1"}})
	notices.Reset()

	h := newHarness(t, "", table)
	assert.Equal(t, 0, h.shell.Run())
	assert.Zero(t, table.Len())
	assert.Equal(t, "[1]  4000001 Done     sleep 1\n", notices.String())
}
