// Package signals installs the shell's own signal disposition and
// restores default dispositions around child creation.
//
// An interactive job-control shell ignores the terminal-generated
// signals that would otherwise stop or kill it when it writes to a
// terminal it doesn't currently own (SIGTTOU/SIGTTIN), when the user
// types the suspend key while the shell itself is in the foreground
// (SIGTSTP), or on Ctrl-\ / a lingering Ctrl-C the line reader didn't
// already absorb (SIGQUIT/SIGINT). Those ignored dispositions are
// inherited across exec unless reset, so every child must have them
// reset to default immediately before it's started; ResetForChild and
// Setup bracket each pipeline's child-creation loop for exactly that
// window.
package signals

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

var jobControlSignals = []os.Signal{
	unix.SIGTTOU,
	unix.SIGTTIN,
	unix.SIGTSTP,
	unix.SIGQUIT,
	unix.SIGINT,
}

// Setup installs the shell's own ignore-disposition for the terminal
// job-control signals. Call it once at startup, and again after each
// pipeline's children have all been started.
func Setup() {
	signal.Ignore(jobControlSignals...)
}

// ResetForChild restores default disposition for the job-control
// signals. Call it immediately before starting a pipeline's child
// processes so they fork/exec with SIG_DFL, not the shell's SIG_IGN.
func ResetForChild() {
	signal.Reset(jobControlSignals...)
}
