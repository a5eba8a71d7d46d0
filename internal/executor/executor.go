// Package executor runs a parsed Pipeline: it short-circuits to a
// builtin when possible, otherwise launches one process per stage,
// wires pipes between them, assigns a process group, transfers terminal
// control, registers the result in the job table, and either reports
// it as a background job or waits for it in the foreground.
//
// spec.md phrases stage launch as "fork, then in the child do (a)-(h)".
// Go's os/exec gives no fork-without-exec hook, so this package takes
// the idiomatic substitute: syscall.SysProcAttr{Setpgid, Pgid,
// Foreground, Ctty} lets exec.Cmd.Start itself perform steps (b) and
// the terminal hand-off race-free, in one kernel call, instead of a
// separate fork followed by setpgid/tcsetpgrp in the child. Steps (f)
// through (h) — "try a builtin, else exec the resolved path, map
// resolution/exec failure to 127/126" — are expressed by re-executing
// this same binary in a hidden mode (see tinysh/cmd/tinysh), since Go
// cannot replace a running goroutine's process image the way exec(3)
// replaces a forked child.
package executor

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"tinysh/internal/builtin"
	"tinysh/internal/job"
	"tinysh/internal/jobctl"
	"tinysh/internal/parser"
	"tinysh/internal/pathresolve"
	"tinysh/internal/redirect"
	"tinysh/internal/shellstate"
	"tinysh/internal/signals"
	"tinysh/internal/termctl"
)

// builtinExecFlag and failExecFlag are the argv[0]-following flags this
// binary recognizes, in cmd/tinysh's main, as "run this single builtin"
// and "report a resolution or exec failure", each followed by an exit,
// instead of starting the REPL.
const (
	builtinExecFlag = "-builtin-exec"
	failExecFlag    = "-fail-exec"
)

// Execute runs one parsed pipeline to completion or backgrounding.
func Execute(p *parser.Pipeline, table *job.Table, state *shellstate.State) (exit bool, err error) {
	jobctl.Opportunistic(os.Stdout, table)
	defer jobctl.Opportunistic(os.Stdout, table)

	if p == nil {
		return false, nil
	}

	if isShortCircuitable(p) {
		res := builtin.Dispatch(p.Stages()[0].Argv, table, state, os.Stdout, os.Stderr)
		if res.Handled {
			if res.Err != nil {
				fmt.Fprintln(os.Stderr, state.Diagnostic(p.Stages()[0].Argv[0], res.Err.Error(), nil))
			}
			return res.Exit, nil
		}
	}

	if p.Len() > table.MaxProcs() {
		state.SetExitCode(1)
		return false, fmt.Errorf("too many processes")
	}

	j, err := launch(p, table)
	if err != nil {
		if termctl.IsInteractive() && !p.Background() {
			_ = termctl.RestoreShellForeground()
		}
		state.SetExitCode(1)
		return false, err
	}

	if p.Background() {
		fmt.Printf("[%d] %d\n", j.Jid, j.Pgid)
		state.SetExitCode(0)
		return false, nil
	}

	interactive := termctl.IsInteractive()
	jobctl.WaitUntilNotRunning(table, j)
	if interactive {
		_ = termctl.RestoreShellForeground()
	}
	exitCode := jobctl.Finalize(table, j)
	state.SetExitCode(exitCode)
	return false, nil
}

// isShortCircuitable reports whether p qualifies for spec.md §4.5 step
// 2: a single stage, no redirections, not background.
func isShortCircuitable(p *parser.Pipeline) bool {
	if p.Len() != 1 || p.Background() {
		return false
	}
	c := p.Stages()[0]
	return c.Stdin == nil && c.Stdout == nil && c.Stderr == nil
}

// launch forks every stage of the pipeline, wires its pipes, assigns a
// process group, and registers it with the job table. It holds the
// table's lock for the entire sequence, per spec.md §4.5 step 4.
func launch(p *parser.Pipeline, table *job.Table) (*job.Job, error) {
	stages := p.Stages()
	interactive := termctl.IsInteractive() && !p.Background()

	table.Lock()
	defer table.Unlock()

	signals.ResetForChild()
	defer signals.Setup()

	var cmds []*exec.Cmd
	var pids []int
	pgid := 0
	var prevRead *os.File

	cleanup := func() {
		for _, c := range cmds {
			if c.Process != nil {
				// Not yet registered in the job table: the reaper's
				// wait4(-1, ...) loop will still collect its exit
				// status once SIGCHLD fires, so no explicit Wait here.
				_ = c.Process.Kill()
			}
		}
		if prevRead != nil {
			_ = prevRead.Close()
		}
	}

	for i, stage := range stages {
		var stageWrite *os.File
		var nextRead *os.File
		if i < len(stages)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				cleanup()
				return nil, fmt.Errorf("pipe: %w", err)
			}
			stageWrite = w
			nextRead = r
		}

		stdin, stdout, stderr, err := redirect.Open(stage)
		if err != nil {
			if nextRead != nil {
				_ = nextRead.Close()
			}
			if stageWrite != nil {
				_ = stageWrite.Close()
			}
			cleanup()
			return nil, err
		}

		in := stdin
		if in == nil {
			in = prevRead
		}
		if in == nil {
			in = os.Stdin
		}
		out := stdout
		if out == nil {
			out = stageWrite
		}
		if out == nil {
			out = os.Stdout
		}
		errOut := stderr
		if errOut == nil {
			errOut = os.Stderr
		}

		cmd, resolved := buildCmd(stage.Argv, in, out, errOut, pgid, interactive && i == 0)

		if err := cmd.Start(); err != nil {
			if !resolved {
				closeStageFiles(stdin, stdout, stderr, prevRead, stageWrite)
				cleanup()
				return nil, fmt.Errorf("%s: %w", stage.Argv[0], err)
			}
			// The path resolved but exec(3) itself failed (permission
			// denied, bad interpreter, ENOEXEC, ...): report this stage
			// as exiting 126, the same way a real forked child would,
			// rather than aborting the whole pipeline.
			cmd = buildFailCmd(126, err.Error(), in, out, errOut, pgid, interactive && i == 0)
			if err := cmd.Start(); err != nil {
				closeStageFiles(stdin, stdout, stderr, prevRead, stageWrite)
				cleanup()
				return nil, fmt.Errorf("%s: %w", stage.Argv[0], err)
			}
		}

		pid := cmd.Process.Pid
		if pgid == 0 {
			pgid = pid
		}
		_ = unix.Setpgid(pid, pgid)
		if interactive && i == 0 {
			_ = termctl.SetForeground(pgid)
		}

		closeStageFiles(stdin, stdout, stderr)
		if prevRead != nil {
			_ = prevRead.Close()
		}

		cmds = append(cmds, cmd)
		pids = append(pids, pid)
		prevRead = nextRead
	}

	lastPid := pids[len(pids)-1]
	j, err := job.Add(table, pgid, pids, lastPid, p.String())
	if err != nil {
		cleanup()
		return nil, err
	}

	return j, nil
}

func closeStageFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// buildCmd constructs the exec.Cmd for one pipeline stage, choosing a
// real program path when the stage names an external command, or a
// self-re-exec into one of this binary's hidden modes when it names a
// builtin or fails to resolve (spec.md §4.5 step 5(f)-(h)). resolved
// reports whether cmd targets an actually-resolved external path, as
// opposed to one of the already-failing self-re-exec modes: the caller
// uses this to tell a genuine exec(3) failure (mapped to 126) apart
// from a resolution failure that was already mapped to 127.
func buildCmd(argv []string, stdin, stdout, stderr *os.File, pgid int, foreground bool) (cmd *exec.Cmd, resolved bool) {
	switch {
	case builtin.IsBuiltin(argv[0]):
		cmd = exec.Command(selfPath(), append([]string{builtinExecFlag}, argv...)...)
	default:
		path, err := pathresolve.Resolve(argv[0])
		if err != nil {
			cmd = exec.Command(selfPath(), failExecFlag, "127", err.Error())
		} else {
			// Args keeps argv[0] as the user typed it; Path is the
			// resolved file actually exec'd, the same distinction a
			// real fork+exec makes between argv[0] and the exec path.
			cmd = &exec.Cmd{Path: path, Args: argv}
			resolved = true
		}
	}

	applyStdio(cmd, stdin, stdout, stderr, pgid, foreground)
	return cmd, resolved
}

// buildFailCmd constructs a self-re-exec "-fail-exec" stage reporting
// code and msg, wired with the same stdio and process-group attributes
// a real stage would get. Used when a resolved external command's
// exec(3) itself fails (spec.md §4.5 step 5(h): mapped to 126), since
// there is no running child left to report that failure itself.
func buildFailCmd(code int, msg string, stdin, stdout, stderr *os.File, pgid int, foreground bool) *exec.Cmd {
	cmd := exec.Command(selfPath(), failExecFlag, strconv.Itoa(code), msg)
	applyStdio(cmd, stdin, stdout, stderr, pgid, foreground)
	return cmd
}

func applyStdio(cmd *exec.Cmd, stdin, stdout, stderr *os.File, pgid int, foreground bool) {
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:    true,
		Pgid:       pgid,
		Foreground: foreground,
		Ctty:       ctty(),
	}
}

func ctty() int {
	if termctl.IsInteractive() {
		return int(os.Stdin.Fd())
	}
	return 0
}

func selfPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}
