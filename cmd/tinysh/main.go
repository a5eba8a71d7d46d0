// Command tinysh is an interactive POSIX-like shell: a REPL over the
// tokenizer/parser/executor/job-table packages in tinysh/internal.
//
// Running with no arguments starts the REPL. Two hidden modes, selected
// by a flag in argv[1], exist purely as an implementation device for tinysh/internal/
// executor: "-builtin-exec" runs a single builtin in what is otherwise
// a forked pipeline stage, and "-fail-exec" reports a path-resolution
// failure with the pipeline stage's conventional exit code. Neither is
// meant to be invoked directly by a user.
package main

import (
	"os"
	"strconv"

	"tinysh/internal/builtin"
	"tinysh/internal/shell"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-builtin-exec":
			os.Exit(builtin.ExecForChild(os.Args[2:], os.Stdout, os.Stderr))
		case "-fail-exec":
			os.Exit(runFailExec(os.Args[2:]))
		}
	}

	os.Exit(shell.Run())
}

// runFailExec prints a command-resolution failure message and returns
// the exit code the pipeline executor wants this stage to report
// (spec.md §4.5 step 5(h)): 127 when the command could not be
// resolved, or whatever mapped code the executor chose.
func runFailExec(args []string) int {
	code := 127
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	if len(args) > 1 {
		os.Stderr.WriteString("tinysh: " + args[1] + "\n")
	}
	return code
}
