// Package termctl transfers terminal foreground ownership between the
// shell and the pipelines it launches. Exactly one process group owns
// the terminal at a time; this package is the single-writer boundary
// spec.md's concurrency model requires for that resource.
package termctl

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// IsInteractive reports whether the shell's stdin is attached to a
// terminal. Terminal hand-off only happens when this is true.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShellPgid returns the shell process's own process group id.
func ShellPgid() int {
	return unix.Getpgrp()
}

// SetForeground makes pgid the terminal's foreground process group.
func SetForeground(pgid int) error {
	return unix.IoctlSetPointerInt(int(os.Stdin.Fd()), unix.TIOCSPGRP, pgid)
}

// RestoreShellForeground returns terminal foreground ownership to the
// shell's own process group. Called unconditionally on every
// foreground-pipeline exit path, including fatal errors.
func RestoreShellForeground() error {
	return SetForeground(ShellPgid())
}
