// Package job implements the shell's job table: the record of each
// launched pipeline, its process-group and state, and the current/
// previous markers used by fg, bg and jobs.
//
// The table's own mutex stands in for the "block child-exit
// notifications" critical section spec.md describes: Go delivers
// SIGCHLD onto a channel read by a dedicated goroutine (see
// tinysh/internal/reaper) rather than invoking a raw signal handler, so
// there is no sigprocmask-style primitive to reach for. Holding
// Table.Lock across "fork all stages, assign pgid, register the Job"
// achieves the same race freedom: the reaper goroutine cannot observe
// or mutate a Job until the registering call releases the lock.
package job

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// MaxJobs is the largest number of simultaneously active jobs the table
// will hold; jid values are drawn from [1, MaxJobs].
const MaxJobs = 64

// MaxProcs is the largest number of stages a single pipeline (and thus
// a single Job) may have.
const MaxProcs = 64

// State is a Job's lifecycle state.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	}
	return "Unknown"
}

// Job is the shell's view of one launched pipeline.
type Job struct {
	Jid  int
	Seq  uint64
	Pgid int
	Pids []int

	LastPid         int
	LastStatusValid bool
	LastStatus      unix.WaitStatus

	Alive int
	State State

	Printable string
	Notified  bool
}

// ExitCode derives the shell's reported exit code from the job's last
// recorded stage status, per spec.md's child exit-code conventions.
func (j *Job) ExitCode() int {
	if !j.LastStatusValid {
		return 0
	}
	switch {
	case j.LastStatus.Exited():
		return j.LastStatus.ExitStatus() & 0xff
	case j.LastStatus.Signaled():
		return 128 + int(j.LastStatus.Signal())
	default:
		return 0
	}
}

// Table is the process-wide collection of active jobs. All mutating
// methods (Add, Remove, RecomputeCurrentPrevious, and direct field
// mutation of a Job obtained from the table) require the caller to
// already hold the table's lock via Lock/Unlock.
type Table struct {
	mu   sync.Mutex
	cond *sync.Cond

	jobs    map[int]*Job
	byPid   map[int]*Job
	current int
	prev    int
	nextSeq uint64

	maxJobs  int
	maxProcs int
}

// NewTable returns an empty job table using the compiled-in MaxJobs/
// MaxProcs ceilings.
func NewTable() *Table {
	return NewTableWithLimits(MaxJobs, MaxProcs)
}

// NewTableWithLimits returns an empty job table whose effective limits
// are maxJobs/maxProcs, each clamped to the compiled-in MaxJobs/MaxProcs
// ceiling. This is how an operator's config can lower, but never raise,
// the table's capacity.
func NewTableWithLimits(maxJobs, maxProcs int) *Table {
	if maxJobs <= 0 || maxJobs > MaxJobs {
		maxJobs = MaxJobs
	}
	if maxProcs <= 0 || maxProcs > MaxProcs {
		maxProcs = MaxProcs
	}
	t := &Table{
		jobs:     make(map[int]*Job),
		byPid:    make(map[int]*Job),
		nextSeq:  1,
		maxJobs:  maxJobs,
		maxProcs: maxProcs,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// MaxProcs reports the effective per-pipeline stage-count ceiling for
// this table.
func (t *Table) MaxProcs() int { return t.maxProcs }

// Lock acquires the table's critical-section lock. Callers bracket the
// entire "fork stages, assign pgid, register job" sequence (or any
// other multi-step read/mutate sequence) with Lock/Unlock so the
// reaper goroutine cannot interleave.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Wait blocks on the table's condition variable, releasing the lock
// while waiting and reacquiring it before returning. The caller must
// hold the lock. Used to suspend a foreground wait until the reaper
// broadcasts a state change.
func (t *Table) Wait() { t.cond.Wait() }

// Broadcast wakes every goroutine blocked in Wait. The caller must hold
// the lock. The reaper calls this after folding a status change into a
// Job.
func (t *Table) Broadcast() { t.cond.Broadcast() }

// ErrTableFull is returned by Add when the table already holds its
// effective job limit (at most MaxJobs) of active jobs.
var ErrTableFull = fmt.Errorf("too many jobs")

// Add registers a newly launched pipeline. The caller must hold the lock.
func Add(t *Table, pgid int, pids []int, lastPid int, printable string) (*Job, error) {
	if len(t.jobs) >= t.maxJobs {
		return nil, ErrTableFull
	}

	jid := 1
	for {
		if _, used := t.jobs[jid]; !used {
			break
		}
		jid++
	}

	j := &Job{
		Jid:       jid,
		Seq:       t.nextSeq,
		Pgid:      pgid,
		Pids:      append([]int(nil), pids...),
		LastPid:   lastPid,
		Alive:     len(pids),
		State:     Running,
		Printable: printable,
	}
	t.nextSeq++

	t.jobs[jid] = j
	for _, pid := range pids {
		t.byPid[pid] = j
	}

	t.recomputeCurrentPrevious()

	return j, nil
}

// ByJid returns the job with the given jid, if any. The caller must
// hold the lock.
func ByJid(t *Table, jid int) (*Job, bool) {
	j, ok := t.jobs[jid]
	return j, ok
}

// ByPid returns the job owning pid, if any. The caller must hold the lock.
func ByPid(t *Table, pid int) (*Job, bool) {
	j, ok := t.byPid[pid]
	return j, ok
}

// Remove deletes job from the table. If the table becomes empty, it
// resets current, previous, and the sequence counter. The caller must
// hold the lock.
func Remove(t *Table, j *Job) {
	delete(t.jobs, j.Jid)
	for _, pid := range j.Pids {
		if owner, ok := t.byPid[pid]; ok && owner == j {
			delete(t.byPid, pid)
		}
	}

	if len(t.jobs) == 0 {
		t.current = 0
		t.prev = 0
		t.nextSeq = 1
		return
	}

	t.recomputeCurrentPrevious()
}

// RecomputeCurrentPrevious re-derives the current/previous markers from
// the active jobs' sequence numbers. The caller must hold the lock.
func RecomputeCurrentPrevious(t *Table) { t.recomputeCurrentPrevious() }

func (t *Table) recomputeCurrentPrevious() {
	var top, second *Job
	for _, j := range t.jobs {
		switch {
		case top == nil || j.Seq > top.Seq:
			second = top
			top = j
		case second == nil || j.Seq > second.Seq:
			second = j
		}
	}

	t.current = 0
	t.prev = 0
	if top != nil {
		t.current = top.Jid
	}
	if second != nil {
		t.prev = second.Jid
	}
}

// Mark reports '+' for the current job, '-' for the previous job, and
// ' ' otherwise. The caller must hold the lock.
func Mark(t *Table, j *Job) byte {
	switch j.Jid {
	case t.current:
		return '+'
	case t.prev:
		return '-'
	default:
		return ' '
	}
}

// List returns all active jobs ordered by jid. The caller must hold the lock.
func List(t *Table) []*Job {
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Jid < out[k].Jid })
	return out
}

// Notification formats the standard job-state line:
// "[jid]<mark>  <State>\t<printable>". The caller must hold the lock.
func Notification(t *Table, j *Job) string {
	return fmt.Sprintf("[%d]%c  %s\t%s", j.Jid, Mark(t, j), j.State, j.Printable)
}

// SpecKind identifies which form a job-spec argument took.
type SpecKind int

const (
	SpecCurrent SpecKind = iota
	SpecPrevious
	SpecJid
)

// Spec is a parsed job-spec argument, as accepted by fg/bg/kill.
type Spec struct {
	Kind SpecKind
	Jid  int
}

// ErrNoSuchJob is returned when a job-spec does not resolve to an
// active job, or does not parse as one of the recognized forms.
var ErrNoSuchJob = fmt.Errorf("no such job")

// ParseSpec parses a job-spec argument: "%%", "%+", or "" mean current;
// "%-" means previous; a decimal number (with or without a leading "%")
// names that literal jid; anything else is a spec error.
func ParseSpec(s string) (Spec, error) {
	switch s {
	case "", "%%", "%+":
		return Spec{Kind: SpecCurrent}, nil
	case "%-":
		return Spec{Kind: SpecPrevious}, nil
	}

	digits := s
	if len(digits) > 0 && digits[0] == '%' {
		digits = digits[1:]
	}
	jid := 0
	if digits == "" {
		return Spec{}, ErrNoSuchJob
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Spec{}, ErrNoSuchJob
		}
		jid = jid*10 + int(r-'0')
	}
	return Spec{Kind: SpecJid, Jid: jid}, nil
}

// Resolve looks up the Job named by spec. The caller must hold the lock.
func Resolve(t *Table, spec Spec) (*Job, error) {
	switch spec.Kind {
	case SpecCurrent:
		if t.current == 0 {
			return nil, ErrNoSuchJob
		}
		return t.jobs[t.current], nil
	case SpecPrevious:
		if t.prev == 0 {
			return nil, ErrNoSuchJob
		}
		return t.jobs[t.prev], nil
	case SpecJid:
		j, ok := t.jobs[spec.Jid]
		if !ok {
			return nil, ErrNoSuchJob
		}
		return j, nil
	}
	return nil, ErrNoSuchJob
}

// SetCurrent makes j the current job, demoting the previous current job
// to previous. The caller must hold the lock.
func SetCurrent(t *Table, j *Job) {
	if t.current == j.Jid {
		return
	}
	t.prev = t.current
	t.current = j.Jid
}
