package jobs

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Proc is one spawned stage of a job.
type Proc struct {
	Pid     int
	Command string
	Done    bool
	Status  Status
}

type Job struct {
	Command string
	Procs   []Proc
}

func (j *Job) finished() bool {
	for _, p := range j.Procs {
		if !p.Done {
			return false
		}
	}
	return true
}

func (j *Job) Pids() []int {
	pids := make([]int, len(j.Procs))
	for i, p := range j.Procs {
		pids[i] = p.Pid
	}
	return pids
}

// Report describes one stage of a job that has finished.
type Report struct {
	Slot    int
	Pid     int
	Command string
	Status  Status
}

func (r Report) String() string {
	return fmt.Sprintf("[%d]  %-7d %-8s %s", r.Slot, r.Pid, r.Status, r.Command)
}

// Table holds the background jobs. Slot numbers are 1-based positions and
// shift down when an earlier job is removed.
type Table struct {
	jobs   []*Job
	out    io.Writer
	waiter Waiter
	log    *slog.Logger
}

type Option func(*Table)

func WithWaiter(w Waiter) Option {
	return func(t *Table) { t.waiter = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Table) { t.log = l }
}

func NewTable(out io.Writer, opts ...Option) *Table {
	t := &Table{
		out:    out,
		waiter: unixWaiter{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.jobs)
}

// Get returns the job in the given 1-based slot.
func (t *Table) Get(slot int) (*Job, bool) {
	if slot < 1 || slot > len(t.jobs) {
		return nil, false
	}
	return t.jobs[slot-1], true
}

// Add registers a backgrounded pipeline, announces its slot and pids, and
// returns the slot.
func (t *Table) Add(command string, procs []Proc) int {
	t.jobs = append(t.jobs, &Job{Command: command, Procs: procs})
	slot := len(t.jobs)

	pids := make([]string, len(procs))
	for i, p := range procs {
		pids[i] = strconv.Itoa(p.Pid)
	}
	fmt.Fprintf(t.out, "[%d] %s\n", slot, strings.Join(pids, " "))
	t.log.Debug("job added", "slot", slot, "pids", pids, "command", command)

	return slot
}

// Sweep polls every tracked process without blocking. Jobs whose processes
// have all exited are reported one line per stage and removed.
func (t *Table) Sweep() []Report {
	var reports []Report

	for i := 0; i < len(t.jobs); {
		job := t.jobs[i]
		for k := range job.Procs {
			p := &job.Procs[k]
			if p.Done {
				continue
			}
			done, status, err := t.waiter.Reap(p.Pid)
			if err != nil {
				t.log.Warn("reap failed", "pid", p.Pid, "error", err)
				continue
			}
			p.Done, p.Status = done, status
		}

		if !job.finished() {
			i++
			continue
		}

		for _, p := range job.Procs {
			r := Report{Slot: i + 1, Pid: p.Pid, Command: p.Command, Status: p.Status}
			fmt.Fprintln(t.out, r)
			reports = append(reports, r)
		}
		t.log.Debug("job finished", "slot", i+1, "command", job.Command)
		t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
	}

	return reports
}

type Format int

const (
	FormatShort Format = iota
	FormatLong
	FormatPids
)

// List writes the active jobs, or only the given slots. It never changes
// the table.
func (t *Table) List(w io.Writer, format Format, slots ...int) {
	for i, job := range t.jobs {
		if len(slots) > 0 && !slices.Contains(slots, i+1) {
			continue
		}
		mark := "-"
		if i == len(t.jobs)-1 {
			mark = "+"
		}

		switch format {
		case FormatPids:
			for _, p := range job.Procs {
				fmt.Fprintln(w, p.Pid)
			}
		case FormatLong:
			for k, p := range job.Procs {
				prefix := strings.Repeat(" ", len(strconv.Itoa(i+1))+4)
				if k == 0 {
					prefix = fmt.Sprintf("[%d]%s ", i+1, mark)
				}
				state := "Running"
				if p.Done {
					state = p.Status.String()
				}
				fmt.Fprintf(w, "%s%-7d %-8s %s\n", prefix, p.Pid, state, p.Command)
			}
		default:
			fmt.Fprintf(w, "[%d]%s  %-8s %s &\n", i+1, mark, "Running", job.Command)
		}
	}
}
