// Package jobctl implements the foreground-wait and notification logic
// shared by the pipeline executor and the fg/bg builtins: suspending
// until a job's state changes, finalizing a job once it has, and
// printing pending state-change notifications at the start of a
// command line.
package jobctl

import (
	"fmt"
	"io"

	"tinysh/internal/job"
)

// WaitUntilNotRunning blocks until j.State is no longer Running. It
// parks on the table's condition variable, which the reaper broadcasts
// on every status change, standing in for "suspend with only
// child-exit signals delivered."
func WaitUntilNotRunning(t *job.Table, j *job.Job) {
	t.Lock()
	defer t.Unlock()
	for j.State == job.Running {
		t.Wait()
	}
}

// Finalize applies the "with child-exit notifications blocked" step
// of a foreground wait: if the job is Done, its exit code is derived
// and it is removed from the table; if Stopped, notified is cleared so
// jobctl.Opportunistic will report it on the next call. Returns the
// exit code the shell should record as last_exit_code.
func Finalize(t *job.Table, j *job.Job) (exitCode int) {
	t.Lock()
	defer t.Unlock()

	switch j.State {
	case job.Done:
		exitCode = j.ExitCode()
		job.Remove(t, j)
	case job.Stopped:
		j.Notified = false
	}
	return exitCode
}

// Opportunistic reports every Stopped or Done job whose state has
// changed since it was last reported, and removes any that have
// finished. Running jobs are never reported here: spec.md §4.5 step 1
// restricts the opportunistic pass to pending Stopped/Done
// notifications, so a freshly backgrounded job (registered Running,
// notified false) stays silent until it actually stops or exits.
// Called before accepting a new command line and again after a
// foreground pipeline returns.
func Opportunistic(w io.Writer, t *job.Table) {
	t.Lock()
	defer t.Unlock()

	for _, j := range job.List(t) {
		if j.Notified || j.State == job.Running {
			continue
		}
		fmt.Fprintln(w, job.Notification(t, j))
		j.Notified = true
		if j.State == job.Done {
			job.Remove(t, j)
		}
	}
}
