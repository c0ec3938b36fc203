package jobs

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Status is how a process ended.
type Status struct {
	Code   int
	Signal syscall.Signal
}

// ExitCode folds a signal death into the conventional 128+n.
func (s Status) ExitCode() int {
	if s.Signal != 0 {
		return 128 + int(s.Signal)
	}
	return s.Code
}

func (s Status) String() string {
	switch {
	case s.Signal != 0:
		name := unix.SignalName(s.Signal)
		if name == "" {
			name = fmt.Sprintf("signal %d", int(s.Signal))
		}
		return "Killed (" + name + ")"
	case s.Code == 0:
		return "Done"
	default:
		return fmt.Sprintf("Exit %d", s.Code)
	}
}

func statusOf(ws unix.WaitStatus) Status {
	if ws.Signaled() {
		return Status{Signal: ws.Signal()}
	}
	return Status{Code: ws.ExitStatus()}
}

// Waiter checks on a child process without blocking.
type Waiter interface {
	Reap(pid int) (done bool, status Status, err error)
}

type unixWaiter struct{}

func (unixWaiter) Reap(pid int) (bool, Status, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			// Somebody else already collected it; nothing left to wait for.
			return true, Status{}, nil
		case err != nil:
			return false, Status{}, err
		case wpid == 0:
			return false, Status{}, nil
		}
		if ws.Stopped() || ws.Continued() {
			return false, Status{}, nil
		}
		return true, statusOf(ws), nil
	}
}

// Wait blocks until pid exits.
func Wait(pid int) (Status, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return Status{}, err
		}
		if ws.Exited() || ws.Signaled() {
			return statusOf(ws), nil
		}
	}
}
