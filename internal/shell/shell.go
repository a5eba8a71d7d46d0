// Package shell contains the interactive REPL loop and orchestration
// logic for tinysh. It wires together configuration, the readline-based
// terminal, the parser, the pipeline executor, the job table, and the
// background reaper.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"tinysh/internal/completer"
	"tinysh/internal/config"
	"tinysh/internal/executor"
	"tinysh/internal/job"
	"tinysh/internal/painter"
	"tinysh/internal/parser"
	"tinysh/internal/prompt"
	"tinysh/internal/reaper"
	"tinysh/internal/shellstate"
	"tinysh/internal/signals"
)

// Shell holds the runtime state of the interactive shell: the readline
// terminal, the prompt painter and completer, the job table, the
// background reaper, and the baseline descriptor count used for leak
// detection.
type Shell struct {
	terminal  *readline.Instance
	painter   painter.Painter
	completer *completer.Completer
	table     *job.Table
	reaper    *reaper.Reaper
	state     *shellstate.State

	descriptors   int
	checkCounter  uint
	checkInterval uint
}

// Run boots the shell and runs its interactive loop until EOF or the
// "exit" builtin is reached. It returns the process exit code.
func Run() int {
	sh, err := boot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer sh.close()

	for {
		sh.terminal.Config.AutoComplete = sh.completer
		sh.completer.Update()
		sh.terminal.SetPrompt(prompt.Render(sh.painter, sh.state.LastExitCode))

		line, err := sh.terminal.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return sh.state.LastExitCode & 0xff
			}
			fmt.Fprintln(os.Stderr, sh.state.Diagnostic("", err.Error(), nil))
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p, parseErr := parser.Parse(line)
		if parseErr != nil {
			fmt.Fprintln(os.Stderr, sh.state.Diagnostic("", parseErr.Error(), nil))
			continue
		}

		exit, execErr := executor.Execute(p, sh.table, sh.state)
		if execErr != nil {
			fmt.Fprintln(os.Stderr, sh.state.Diagnostic("", execErr.Error(), nil))
		}
		sh.checkDescriptors()

		if exit {
			return sh.state.LastExitCode & 0xff
		}
	}
}

// boot initializes the shell runtime: it loads configuration (falling
// back to defaults on error), creates a readline terminal instance,
// records the baseline descriptor count for leak detection, starts the
// reaper and installs the shell's signal disposition.
func boot() (*Shell, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cfg = config.Default()
	}

	readlineCfg := &readline.Config{
		HistoryFile:     cfg.HistoryFile,
		HistoryLimit:    cfg.HistoryLimit,
		InterruptPrompt: cfg.InterruptPrompt,
		EOFPrompt:       cfg.EOFPrompt,
	}
	terminal, err := readline.NewEx(readlineCfg)
	if err != nil {
		return nil, fmt.Errorf("tinysh: boot: failed to create new terminal instance: %w", err)
	}

	descriptors, err := os.ReadDir(fmt.Sprintf("/proc/%d/fd", os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("tinysh: boot: cannot read fd directory: %w", err)
	}

	table := job.NewTableWithLimits(cfg.MaxJobs, cfg.MaxProcs)
	r := reaper.New(table)
	r.Start()
	signals.Setup()

	sh := &Shell{
		terminal:      terminal,
		painter:       painter.NewPainter(cfg.Prompt),
		completer:     completer.NewCompleter(table),
		table:         table,
		reaper:        r,
		state:         shellstate.New("tinysh"),
		descriptors:   len(descriptors),
		checkInterval: cfg.CheckInterval,
	}

	return sh, nil
}

// close stops the reaper and closes the readline terminal.
func (sh *Shell) close() {
	sh.reaper.Stop()
	_ = sh.terminal.Close()
}

// checkDescriptors panics if more file descriptors are open than at
// startup, once every checkInterval command lines. A growing descriptor
// count across pipelines means something failed to close a pipe or
// redirected file.
func (sh *Shell) checkDescriptors() {
	if sh.checkInterval == 0 {
		return
	}

	sh.checkCounter++
	if sh.checkCounter < sh.checkInterval {
		return
	}
	sh.checkCounter = 0

	fdDir := fmt.Sprintf("/proc/%d/fd", os.Getpid())
	current, err := os.ReadDir(fdDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tinysh: sysmon: cannot read fd dir:", err)
		return
	}

	if len(current) <= sh.descriptors {
		return
	}

	var open []string
	for _, d := range current {
		open = append(open, d.Name())
	}
	panic(fmt.Errorf(
		"descriptor leak detected: %d file descriptors still open (pid=%d, open fds=%v)",
		len(current)-sh.descriptors, os.Getpid(), open,
	))
}
