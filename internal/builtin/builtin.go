// Package builtin implements the shell actions that run in the parent
// process rather than as external programs: cd, exit, jobs, fg and bg
// from spec.md's Builtins component, plus the teacher's simple
// parent-independent builtins (pwd, echo, kill, ps) that don't touch
// job state.
package builtin

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"tinysh/internal/job"
	"tinysh/internal/jobctl"
	"tinysh/internal/shellstate"
	"tinysh/internal/termctl"
)

var names = map[string]bool{
	"cd": true, "exit": true, "jobs": true, "fg": true, "bg": true,
	"pwd": true, "echo": true, "kill": true, "ps": true,
}

// IsBuiltin reports whether name is one of the builtin commands.
func IsBuiltin(name string) bool { return names[name] }

// Result reports how Dispatch handled a command.
type Result struct {
	Handled bool  // true iff argv[0] names a builtin
	Exit    bool  // true iff the caller should terminate (the "exit" builtin)
	Err     error // non-nil on a builtin-reported failure
}

// Dispatch runs the builtin named by argv[0], if there is one. state's
// LastExitCode is set to 1 for every handled builtin that fails and to 0
// for one that succeeds, with two exceptions: exit sets it itself (and
// leaves it unchanged on a too-many-arguments error), and a successful
// fg keeps the exit code derived from the job it waited for.
func Dispatch(argv []string, table *job.Table, state *shellstate.State, stdout, stderr io.Writer) Result {
	if len(argv) == 0 || !names[argv[0]] {
		return Result{}
	}

	if argv[0] == "exit" {
		return exitBuiltin(argv[1:], state)
	}

	var err error
	switch argv[0] {
	case "cd":
		err = cd(argv[1:], stdout)
	case "jobs":
		err = jobsBuiltin(stdout, table)
	case "fg":
		err = fg(argv[1:], table, state)
	case "bg":
		err = bg(argv[1:], table, stdout)
	case "pwd":
		err = pwd(stdout)
	case "echo":
		err = echo(argv[1:], stdout)
	case "kill":
		err = kill(argv[1:], table)
	case "ps":
		err = processStatus(stdout)
	}

	if err != nil {
		state.SetExitCode(1)
	} else if argv[0] != "fg" {
		state.SetExitCode(0)
	}
	return Result{Handled: true, Err: err}
}

// ExecForChild runs a builtin in a forked pipeline-stage process that
// has no access to the shell's real job table (spec.md §4.5 step 5(f)):
// the builtin executes against an empty table, exactly as a real
// subshell would see no jobs of its parent. It returns the process exit
// code the caller should report.
func ExecForChild(argv []string, stdout, stderr io.Writer) int {
	table := job.NewTable()
	state := shellstate.New("tinysh")

	res := Dispatch(argv, table, state, stdout, stderr)
	if !res.Handled {
		fmt.Fprintln(stderr, "tinysh: "+argv[0]+": not a builtin")
		return 1
	}
	if res.Err != nil {
		fmt.Fprintln(stderr, state.Diagnostic(argv[0], res.Err.Error(), nil))
		return 1
	}
	if res.Exit {
		return state.LastExitCode
	}
	return 0
}

// cd changes the shell's working directory: zero args go to HOME, "-"
// goes to OLDPWD (echoing the new directory), otherwise the argument is
// used directly.
func cd(args []string, stdout io.Writer) error {
	var target string
	var echoResult bool

	switch len(args) {
	case 0:
		target = os.Getenv("HOME")
	case 1:
		if args[0] == "-" {
			old, ok := os.LookupEnv("OLDPWD")
			if !ok {
				return fmt.Errorf("OLDPWD not set")
			}
			target = old
			echoResult = true
		} else {
			target = args[0]
		}
	default:
		return fmt.Errorf("too many arguments")
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", target)
	}
	if err := unix.Access(target, unix.X_OK); err != nil {
		return fmt.Errorf("%s: permission denied", target)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if err := os.Chdir(target); err != nil {
		return err
	}

	newCwd, err := os.Getwd()
	if err != nil {
		newCwd = target
	}

	os.Setenv("OLDPWD", cwd)
	os.Setenv("PWD", newCwd)

	if echoResult {
		fmt.Fprintln(stdout, newCwd)
	}
	return nil
}

// exitBuiltin implements the exit builtin's exact status-code rules.
func exitBuiltin(args []string, state *shellstate.State) Result {
	switch len(args) {
	case 0:
		state.SetExitCode(0)
		return Result{Handled: true, Exit: true}
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			state.SetExitCode(2)
			return Result{Handled: true, Err: fmt.Errorf("%s: numeric argument required", args[0])}
		}
		state.SetExitCode(n)
		return Result{Handled: true, Exit: true}
	default:
		return Result{Handled: true, Err: fmt.Errorf("too many arguments")}
	}
}

// jobsBuiltin prints the job table in jid order without clearing
// notified, so a later opportunistic pass still reports the change.
func jobsBuiltin(w io.Writer, t *job.Table) error {
	t.Lock()
	defer t.Unlock()
	for _, j := range job.List(t) {
		fmt.Fprintln(w, job.Notification(t, j))
	}
	return nil
}

// fg resolves a job-spec, brings it to the foreground, waits for it to
// stop or finish, and finalizes it the same way the pipeline executor's
// foreground path does.
func fg(args []string, t *job.Table, state *shellstate.State) error {
	if len(args) > 1 {
		return fmt.Errorf("too many arguments")
	}
	var specArg string
	if len(args) == 1 {
		specArg = args[0]
	}
	spec, err := job.ParseSpec(specArg)
	if err != nil {
		return err
	}

	t.Lock()
	j, err := job.Resolve(t, spec)
	if err != nil {
		t.Unlock()
		return err
	}
	job.SetCurrent(t, j)
	j.State = job.Running
	j.Notified = false
	pgid := j.Pgid
	t.Unlock()

	_ = unix.Kill(-pgid, unix.SIGCONT)

	interactive := termctl.IsInteractive()
	if interactive {
		_ = termctl.SetForeground(pgid)
	}

	jobctl.WaitUntilNotRunning(t, j)

	if interactive {
		_ = termctl.RestoreShellForeground()
	}

	exitCode := jobctl.Finalize(t, j)
	state.SetExitCode(exitCode)
	return nil
}

// bg resolves a job-spec, makes it current, resumes it in the
// background, and prints a job-style notification with a trailing " &".
func bg(args []string, t *job.Table, stdout io.Writer) error {
	if len(args) > 1 {
		return fmt.Errorf("too many arguments")
	}
	var specArg string
	if len(args) == 1 {
		specArg = args[0]
	}
	spec, err := job.ParseSpec(specArg)
	if err != nil {
		return err
	}

	t.Lock()
	j, err := job.Resolve(t, spec)
	if err != nil {
		t.Unlock()
		return err
	}
	job.SetCurrent(t, j)
	j.State = job.Running
	pgid := j.Pgid
	notification := job.Notification(t, j) + " &"
	j.Notified = true
	t.Unlock()

	_ = unix.Kill(-pgid, unix.SIGCONT)
	fmt.Fprintln(stdout, notification)
	return nil
}

// kill sends SIGTERM to a literal pid or, as a convenience beyond
// spec.md's invariants, to the process group of a job-spec argument
// (e.g. "kill %1").
func kill(args []string, t *job.Table) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: kill pid | %%jobspec ...")
	}

	var lastErr error
	for _, arg := range args {
		if strings.HasPrefix(arg, "%") {
			spec, err := job.ParseSpec(arg)
			if err != nil {
				lastErr = err
				continue
			}
			t.Lock()
			j, err := job.Resolve(t, spec)
			var pgid int
			if err == nil {
				pgid = j.Pgid
			}
			t.Unlock()
			if err != nil {
				lastErr = err
				continue
			}
			if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
				lastErr = fmt.Errorf("(%d) - Operation not permitted", pgid)
			}
			continue
		}

		pid, err := strconv.Atoi(arg)
		if err != nil {
			lastErr = fmt.Errorf("%s: arguments must be process or job IDs", arg)
			continue
		}
		if err := unix.Kill(pid, unix.SIGTERM); err != nil {
			lastErr = fmt.Errorf("(%d) - Operation not permitted", pid)
		}
	}
	return lastErr
}

// pwd prints the current working directory.
func pwd(w io.Writer) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get absolute path name: %w", err)
	}
	_, err = fmt.Fprintln(w, dir)
	return err
}

// echo prints its arguments joined by spaces, followed by a newline.
func echo(args []string, w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(args, " "))
	return err
}

// processStatus prints a ps-like listing of processes attached to the
// current terminal.
func processStatus(w io.Writer) error {
	path, re, processes, err := psPrep(w)
	if err != nil {
		return err
	}

	for _, process := range processes {
		pid := process.Pid()
		cmd := process.Executable()

		link, err := os.Readlink(fmt.Sprintf("/proc/%d/fd/0", pid))
		if err == nil && re.MatchString(link) {
			if _, err := fmt.Fprintf(w, "%7d pts/%-8s 00:00:00 %s\n", pid, filepath.Base(path), cmd); err != nil {
				return fmt.Errorf("write operation failed: %w", err)
			}
		}
	}
	return nil
}

func psPrep(w io.Writer) (string, *regexp.Regexp, []ps.Process, error) {
	path, err := os.Readlink("/proc/self/fd/0")
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to read /proc/self/fd/0: %w", err)
	}

	re := regexp.MustCompile(fmt.Sprintf(`/dev/pts/%s$`, filepath.Base(path)))

	processes, err := ps.Processes()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get process list: %w", err)
	}

	if _, err := fmt.Fprintln(w, "    PID TTY          TIME CMD"); err != nil {
		return "", nil, nil, fmt.Errorf("write operation failed: %w", err)
	}
	return path, re, processes, nil
}
