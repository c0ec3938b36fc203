package parser

import (
	"fmt"
	"io"
	"strings"
)

// Command is one pipeline stage.
type Command struct {
	Args          []string
	Input, Output string
	// HasInput and HasOutput record that a redirection was given, since
	// the target itself may be the empty string.
	HasInput, HasOutput bool
	// Background is only ever set on the last Command of a Pipeline.
	Background bool
	Pid        int
}

func (c *Command) Name() string {
	return c.Args[0]
}

func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\v\r\n&|<>;$#'\"") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// String renders the stage so that parsing the result yields the same stage.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.Args)+4)
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	if c.HasInput {
		parts = append(parts, "<", quote(c.Input))
	}
	if c.HasOutput {
		parts = append(parts, ">", quote(c.Output))
	}
	return strings.Join(parts, " ")
}

// Pipeline is the parse result for one statement.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

func (p *Pipeline) Last() *Command {
	return p.Commands[len(p.Commands)-1]
}

func (p *Pipeline) setBackground() {
	p.Background = true
	p.Last().Background = true
}

func (p *Pipeline) String() string {
	stages := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		stages[i] = c.String()
	}
	s := strings.Join(stages, " | ")
	if p.Background {
		s += " &"
	}
	return s
}

func indent(w io.Writer, n int, format string, args ...any) {
	fmt.Fprintf(w, "%s"+format+"\n", append([]any{strings.Repeat(" ", n)}, args...)...)
}

// Debug writes the parse tree in an indented, human readable form.
func (p *Pipeline) Debug(w io.Writer) {
	indent(w, 0, "Pipeline {")
	indent(w, 4, "size: %d", len(p.Commands))
	indent(w, 4, "bg: %t", p.Background)
	indent(w, 4, "[")
	for _, c := range p.Commands {
		args := make([]string, len(c.Args)-1)
		for i, a := range c.Args[1:] {
			args[i] = fmt.Sprintf("'%s'", a)
		}
		indent(w, 8, "Command {")
		indent(w, 12, "name: %s", c.Name())
		indent(w, 12, "args: [%s]", strings.Join(args, ", "))
		if c.HasInput {
			indent(w, 12, "in: %s", c.Input)
		}
		if c.HasOutput {
			indent(w, 12, "out: %s", c.Output)
		}
		indent(w, 8, "}")
	}
	indent(w, 4, "]")
	indent(w, 0, "}")
}
