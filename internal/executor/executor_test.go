package executor

import (
	"os"
	"strings"
	"testing"

	"tinysh/internal/parser"
)

func mustParse(t *testing.T, line string) *parser.Pipeline {
	t.Helper()
	p, err := parser.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return p
}

func TestIsShortCircuitableSimpleCommand(t *testing.T) {
	if !isShortCircuitable(mustParse(t, "jobs")) {
		t.Error("a single unredirected foreground command should be short-circuitable")
	}
}

func TestIsShortCircuitableRejectsPipeline(t *testing.T) {
	if isShortCircuitable(mustParse(t, "cat foo | grep bar")) {
		t.Error("a multi-stage pipeline should not be short-circuitable")
	}
}

func TestIsShortCircuitableRejectsBackground(t *testing.T) {
	if isShortCircuitable(mustParse(t, "sleep 1 &")) {
		t.Error("a backgrounded command should not be short-circuitable")
	}
}

func TestIsShortCircuitableRejectsRedirection(t *testing.T) {
	if isShortCircuitable(mustParse(t, "echo hi > out.txt")) {
		t.Error("a redirected command should not be short-circuitable")
	}
}

func TestBuildCmdBuiltinSelfReExecs(t *testing.T) {
	cmd, resolved := buildCmd([]string{"cd", "/tmp"}, os.Stdin, os.Stdout, os.Stderr, 0, false)
	if resolved {
		t.Error("a builtin's self-re-exec should not report resolved=true")
	}
	if len(cmd.Args) < 2 || cmd.Args[1] != builtinExecFlag {
		t.Errorf("got args %v, want argv[1] == %q", cmd.Args, builtinExecFlag)
	}
}

func TestBuildCmdUnresolvedCommandFailsExec(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cmd, resolved := buildCmd([]string{"doesnotexist"}, os.Stdin, os.Stdout, os.Stderr, 0, false)
	if resolved {
		t.Error("an unresolved command should not report resolved=true")
	}
	if len(cmd.Args) < 2 || cmd.Args[1] != failExecFlag {
		t.Errorf("got args %v, want argv[1] == %q", cmd.Args, failExecFlag)
	}
	if cmd.Args[2] != "127" {
		t.Errorf("got status arg %q, want 127", cmd.Args[2])
	}
}

func TestBuildCmdResolvedCommandKeepsArgv0(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/mytool"
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PATH", dir)

	cmd, resolved := buildCmd([]string{"mytool", "a", "b"}, os.Stdin, os.Stdout, os.Stderr, 0, false)
	if !resolved {
		t.Error("a resolved external command should report resolved=true")
	}
	if cmd.Path != path {
		t.Errorf("got Path %q, want %q", cmd.Path, path)
	}
	if !strings.HasSuffix(cmd.Args[0], "mytool") || cmd.Args[0] == path {
		t.Errorf("got Args[0] %q, want it to be the typed command name, not the resolved path", cmd.Args[0])
	}
	if len(cmd.Args) != 3 {
		t.Errorf("got %d args, want 3 (argv preserved, not duplicated)", len(cmd.Args))
	}
}

func TestBuildFailCmdReportsCode(t *testing.T) {
	cmd := buildFailCmd(126, "permission denied", os.Stdin, os.Stdout, os.Stderr, 0, false)
	if len(cmd.Args) < 3 || cmd.Args[1] != failExecFlag || cmd.Args[2] != "126" {
		t.Errorf("got args %v, want [..., %q, 126, ...]", cmd.Args, failExecFlag)
	}
}
