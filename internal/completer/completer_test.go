package completer

import (
	"os"
	"strconv"
	"testing"

	"tinysh/internal/job"
)

func TestJobSpecItemsReflectsTable(t *testing.T) {
	table := job.NewTable()
	c := NewCompleter(table)

	if items := c.jobSpecItems(); len(items) != 0 {
		t.Fatalf("got %d items for an empty table, want 0", len(items))
	}

	table.Lock()
	job.Add(table, 1, []int{1}, 1, "sleep 1")
	job.Add(table, 2, []int{2}, 2, "sleep 2")
	table.Unlock()

	items := c.jobSpecItems()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestUpdateBuildsACompleterForTheCurrentDir(t *testing.T) {
	c := NewCompleter(job.NewTable())
	c.Update()

	// Do should delegate to the freshly built tree without panicking,
	// even against an input that matches nothing.
	if _, _ = c.Do([]rune("nosuchcommand"), len("nosuchcommand")); false {
		t.Fatal("unreachable")
	}
}

func TestGetPIDsReturnsCurrentProcess(t *testing.T) {
	pids := getPIDs()
	if len(pids) == 0 {
		t.Fatal("expected at least one running process to be listed")
	}
	self := strconv.Itoa(os.Getpid())
	for _, pid := range pids {
		if pid == self {
			return
		}
	}
	t.Errorf("expected the current process %s to be listed", self)
}
