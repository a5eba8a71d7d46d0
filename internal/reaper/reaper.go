// Package reaper implements the shell's async child-status collector.
// spec.md describes this as logic invoked directly from a SIGCHLD
// signal handler, bound by strict async-signal-safety rules (no
// allocation, no stdout I/O, save/restore errno). Go's runtime already
// performs the async-signal-safe half of that job: os/signal.Notify
// converts the raw SIGCHLD delivery into a channel send from the
// runtime's own signal trampoline, so the code in this package runs as
// an ordinary goroutine, not inside a signal handler. It still honors
// the spirit of the rule: reapOnce never prints to stdout (diagnostics,
// if any, are deferred to the next main-line notification pass) and
// the wait loop allocates nothing beyond the fixed-size unix.WaitStatus
// on its stack.
package reaper

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"tinysh/internal/job"
)

// Reaper drains child-status changes in the background and folds them
// into a job.Table.
type Reaper struct {
	table *job.Table
	sigCh chan os.Signal
	stop  chan struct{}
	done  chan struct{}
}

// New returns a Reaper that will update table as children change state.
func New(table *job.Table) *Reaper {
	return &Reaper{
		table: table,
		sigCh: make(chan os.Signal, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start begins listening for SIGCHLD and reaping in the background.
func (r *Reaper) Start() {
	signal.Notify(r.sigCh, unix.SIGCHLD)
	go r.run()
}

// Stop halts signal delivery and waits for the background goroutine to exit.
func (r *Reaper) Stop() {
	signal.Stop(r.sigCh)
	close(r.stop)
	<-r.done
}

func (r *Reaper) run() {
	defer close(r.done)
	for {
		select {
		case <-r.sigCh:
			r.reapOnce()
		case <-r.stop:
			return
		}
	}
}

// reapOnce drains every pending child status change without blocking,
// including stopped and continued children, and folds each into the
// owning Job.
func (r *Reaper) reapOnce() {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}

		r.table.Lock()
		applyStatus(r.table, pid, status)
		r.table.Broadcast()
		r.table.Unlock()
	}
}

func applyStatus(t *job.Table, pid int, status unix.WaitStatus) {
	j, ok := job.ByPid(t, pid)
	if !ok {
		return
	}

	switch {
	case status.Stopped():
		j.State = job.Stopped
		j.Notified = false

	case status.Continued():
		j.State = job.Running
		j.Notified = false

	case status.Exited() || status.Signaled():
		if pid == j.LastPid {
			j.LastStatusValid = true
			j.LastStatus = status
		}
		if j.Alive > 0 {
			j.Alive--
		}
		if j.Alive == 0 {
			j.State = job.Done
			j.Notified = false
		}
	}
}
