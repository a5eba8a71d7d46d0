package builtin

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tinysh/internal/job"
	"tinysh/internal/shellstate"
)

func newState() *shellstate.State { return shellstate.New("tinysh") }

func TestIsBuiltin(t *testing.T) {
	for _, name := range []string{"cd", "exit", "jobs", "fg", "bg", "pwd", "echo", "kill", "ps"} {
		if !IsBuiltin(name) {
			t.Errorf("IsBuiltin(%q) = false, want true", name)
		}
	}
	if IsBuiltin("ls") {
		t.Error("IsBuiltin(\"ls\") = true, want false")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	res := Dispatch([]string{"ls", "-l"}, job.NewTable(), newState(), &bytes.Buffer{}, &bytes.Buffer{})
	if res.Handled {
		t.Error("expected Handled=false for a non-builtin")
	}
}

func TestCdHomeAndDash(t *testing.T) {
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(start)

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	var out bytes.Buffer
	if err := cd(nil, &out); err != nil {
		t.Fatalf("cd(HOME): %v", err)
	}
	got, _ := os.Getwd()
	want, _ := filepath.EvalSymlinks(dir)
	gotReal, _ := filepath.EvalSymlinks(got)
	if gotReal != want {
		t.Errorf("got wd %q, want %q", gotReal, want)
	}
	if os.Getenv("OLDPWD") == "" {
		t.Error("expected OLDPWD to be set after cd")
	}

	// cd - should return to the previous directory and echo it.
	out.Reset()
	if err := cd([]string{"-"}, &out); err != nil {
		t.Fatalf("cd(-): %v", err)
	}
	if out.Len() == 0 {
		t.Error("expected cd - to echo the new directory")
	}
}

func TestCdTooManyArgs(t *testing.T) {
	if err := cd([]string{"a", "b"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for too many arguments")
	}
}

func TestCdNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := cd([]string{file}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a non-directory target")
	}
}

func TestCdMissingDirectory(t *testing.T) {
	if err := cd([]string{"/no/such/directory/at/all"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestExitBuiltinNoArgs(t *testing.T) {
	state := newState()
	res := exitBuiltin(nil, state)
	if !res.Exit || res.Err != nil {
		t.Fatalf("got %+v, want Exit=true, Err=nil", res)
	}
	if state.LastExitCode != 0 {
		t.Errorf("got exit code %d, want 0", state.LastExitCode)
	}
}

func TestExitBuiltinNumericArg(t *testing.T) {
	state := newState()
	res := exitBuiltin([]string{"7"}, state)
	if !res.Exit || res.Err != nil {
		t.Fatalf("got %+v, want Exit=true, Err=nil", res)
	}
	if state.LastExitCode != 7 {
		t.Errorf("got exit code %d, want 7", state.LastExitCode)
	}
}

func TestExitBuiltinNonNumericArg(t *testing.T) {
	state := newState()
	res := exitBuiltin([]string{"abc"}, state)
	if res.Err == nil {
		t.Fatal("expected an error for a non-numeric argument")
	}
	if state.LastExitCode != 2 {
		t.Errorf("got exit code %d, want 2", state.LastExitCode)
	}
}

func TestExitBuiltinTooManyArgs(t *testing.T) {
	state := newState()
	res := exitBuiltin([]string{"1", "2"}, state)
	if res.Err == nil || res.Exit {
		t.Fatalf("got %+v, want Err!=nil, Exit=false", res)
	}
}

func TestJobsBuiltinListsInJidOrder(t *testing.T) {
	table := job.NewTable()
	table.Lock()
	job.Add(table, 1, []int{1}, 1, "sleep 1")
	job.Add(table, 2, []int{2}, 2, "sleep 2")
	table.Unlock()

	var out bytes.Buffer
	if err := jobsBuiltin(&out, table); err != nil {
		t.Fatalf("jobsBuiltin: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "sleep 1") || !strings.Contains(lines[1], "sleep 2") {
		t.Errorf("unexpected notification order: %q", out.String())
	}
}

func TestPwdAndEcho(t *testing.T) {
	var out bytes.Buffer
	if err := pwd(&out); err != nil {
		t.Fatalf("pwd: %v", err)
	}
	wd, _ := os.Getwd()
	if strings.TrimSpace(out.String()) != wd {
		t.Errorf("got %q, want %q", strings.TrimSpace(out.String()), wd)
	}

	out.Reset()
	if err := echo([]string{"hello", "world"}, &out); err != nil {
		t.Fatalf("echo: %v", err)
	}
	if out.String() != "hello world\n" {
		t.Errorf("got %q, want %q", out.String(), "hello world\n")
	}
}

func TestKillRequiresArgs(t *testing.T) {
	if err := kill(nil, job.NewTable()); err == nil {
		t.Error("expected an error for kill with no arguments")
	}
}

func TestKillInvalidArgument(t *testing.T) {
	if err := kill([]string{"not-a-pid"}, job.NewTable()); err == nil {
		t.Error("expected an error for a non-numeric, non-jobspec argument")
	}
}

func TestKillUnknownJobSpec(t *testing.T) {
	if err := kill([]string{"%9"}, job.NewTable()); err == nil {
		t.Error("expected an error for a jobspec with no matching job")
	}
}

func TestFgTooManyArgs(t *testing.T) {
	if err := fg([]string{"%1", "%2"}, job.NewTable(), newState()); err == nil {
		t.Error("expected an error for too many arguments")
	}
}

func TestFgInvalidSpec(t *testing.T) {
	if err := fg([]string{"%"}, job.NewTable(), newState()); err == nil {
		t.Error("expected an error for a malformed jobspec")
	}
}

func TestFgNoSuchJob(t *testing.T) {
	if err := fg([]string{"%1"}, job.NewTable(), newState()); err == nil {
		t.Error("expected an error when no job matches the spec")
	}
}

func TestBgResumesAndNotifies(t *testing.T) {
	table := job.NewTable()
	table.Lock()
	j, err := job.Add(table, 999999, []int{999999}, 999999, "sleep 100")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	j.State = job.Stopped
	table.Unlock()

	var out bytes.Buffer
	if err := bg(nil, table, &out); err != nil {
		t.Fatalf("bg: %v", err)
	}

	if !strings.HasSuffix(strings.TrimRight(out.String(), "\n"), "&") {
		t.Errorf("got notification %q, want a trailing &", out.String())
	}

	table.Lock()
	if j.State != job.Running {
		t.Error("bg should set the job's state to Running")
	}
	if !j.Notified {
		t.Error("bg should mark the job notified after printing")
	}
	table.Unlock()
}

func TestBgNoSuchJob(t *testing.T) {
	if err := bg([]string{"%1"}, job.NewTable(), &bytes.Buffer{}); err == nil {
		t.Error("expected an error when no job matches the spec")
	}
}
