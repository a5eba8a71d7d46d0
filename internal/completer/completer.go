// Package completer provides filesystem-, process-, and job-aware tab
// completion for the interactive shell. It dynamically builds
// completion suggestions for common commands based on the current
// directory contents, running system processes, and the shell's own
// job table.
package completer

import (
	"fmt"
	"os"
	"strconv"

	"github.com/chzyer/readline"
	ps "github.com/mitchellh/go-ps"

	"tinysh/internal/job"
)

// Completer adapts the shell's dynamic environment (filesystem,
// processes, and jobs) to the readline.AutoCompleter interface. It
// generates and updates command-specific completion suggestions on each
// loop iteration.
type Completer struct {
	table             *job.Table
	readlineCompleter *readline.PrefixCompleter
}

// NewCompleter returns a new Completer backed by table's job list for
// fg/bg/kill job-spec suggestions.
func NewCompleter(table *job.Table) *Completer {
	return &Completer{table: table, readlineCompleter: readline.NewPrefixCompleter()}
}

// Update rebuilds the completion tree based on the current working
// directory, system process list, and active jobs. It scans files,
// directories, running processes, and job specs to provide up-to-date
// suggestions for commands like "cd", "ls", "kill", "fg", "bg", and others.
func (c *Completer) Update() {

	entries, err := os.ReadDir(".")
	if err != nil {
		return
	}

	var onlyDirs []readline.PrefixCompleterInterface
	var fileNamesToComplete []readline.PrefixCompleterInterface

	for _, entry := range entries {
		if entry.IsDir() {
			fileNamesToComplete = append(fileNamesToComplete, readline.PcItem(entry.Name()+"/"))
			onlyDirs = append(onlyDirs, readline.PcItem(entry.Name()+"/"))
		} else {
			fileNamesToComplete = append(fileNamesToComplete, readline.PcItem(entry.Name()))
		}
	}

	var rmCompleter []readline.PrefixCompleterInterface
	rmCompleter = append(rmCompleter, fileNamesToComplete...)
	rmCompleter = append(rmCompleter, readline.PcItem("-rf", fileNamesToComplete...))

	var procsToKill []readline.PrefixCompleterInterface
	for _, pid := range getPIDs() {
		procsToKill = append(procsToKill, readline.PcItem(pid))
	}

	jobSpecs := c.jobSpecItems()
	procsToKill = append(procsToKill, jobSpecs...)

	newCompleter := readline.NewPrefixCompleter(
		readline.PcItem("cd", onlyDirs...),
		readline.PcItem("rm", rmCompleter...),
		readline.PcItem("kill", procsToKill...),
		readline.PcItem("fg", jobSpecs...),
		readline.PcItem("bg", jobSpecs...),
		readline.PcItem("jobs"),
		readline.PcItem("ps", fileNamesToComplete...),
		readline.PcItem("ls", fileNamesToComplete...),
		readline.PcItem("cat", fileNamesToComplete...),
		readline.PcItem("cut", fileNamesToComplete...),
		readline.PcItem("vim", fileNamesToComplete...),
		readline.PcItem("grep", fileNamesToComplete...),
		readline.PcItem("echo", fileNamesToComplete...),
	)

	c.readlineCompleter = newCompleter

}

// jobSpecItems returns a "%jid" completion item for every job currently
// in the table.
func (c *Completer) jobSpecItems() []readline.PrefixCompleterInterface {
	if c.table == nil {
		return nil
	}
	c.table.Lock()
	defer c.table.Unlock()

	var items []readline.PrefixCompleterInterface
	for _, j := range job.List(c.table) {
		items = append(items, readline.PcItem(fmt.Sprintf("%%%d", j.Jid)))
	}
	return items
}

// Do delegates the completion logic to the underlying PrefixCompleter.
// It satisfies the readline.AutoCompleter interface.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	return c.readlineCompleter.Do(line, pos)
}

// getPIDs lists currently running process IDs via go-ps, used to
// provide completion suggestions for the "kill" command.
func getPIDs() []string {
	processes, err := ps.Processes()
	if err != nil {
		return procFallback()
	}
	pids := make([]string, 0, len(processes))
	for _, p := range processes {
		pids = append(pids, strconv.Itoa(p.Pid()))
	}
	return pids
}

// procFallback scans /proc directly when go-ps fails to enumerate
// processes (e.g. on a restricted procfs mount).
func procFallback() []string {
	proc, _ := os.ReadDir("/proc")
	var pids []string
	for _, entry := range proc {
		if entry.IsDir() {
			if _, err := strconv.Atoi(entry.Name()); err == nil {
				pids = append(pids, entry.Name())
			}
		}
	}
	return pids
}
