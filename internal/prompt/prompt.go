// Package prompt renders the interactive shell prompt spec.md §6
// specifies: a newline, the user and host, the current directory with
// HOME abbreviated as "~", a newline, then the previous exit code and
// "-> ".
package prompt

import (
	"fmt"
	"os"
	"strings"

	"tinysh/internal/painter"
)

// DefaultPrompt is used when the current directory cannot be
// determined. A missing USER or hostname falls back to "user" or
// "localhost" instead.
const DefaultPrompt = "$ "

// Render builds the prompt string for the given last exit code, using p
// to colorize the path component.
func Render(p painter.Painter, lastExitCode int) string {
	user := os.Getenv("USER")
	if user == "" {
		user = "user"
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	path, err := os.Getwd()
	if err != nil {
		return DefaultPrompt
	}
	path = abbreviateHome(path)
	path = p.Paint(p.PathBold, p.PathColour, path)

	return fmt.Sprintf("\n%s@%s: %s\n[%d]-> ", user, host, path, lastExitCode&0xff)
}

// abbreviateHome replaces a leading HOME prefix in path with "~", but
// only when the prefix ends at a path boundary ("/" or end-of-string);
// "/home/alicex" is not abbreviated by a HOME of "/home/alice".
func abbreviateHome(path string) string {
	home := os.Getenv("HOME")
	if home == "" || home == "/" {
		return path
	}
	if !strings.HasPrefix(path, home) {
		return path
	}
	rest := path[len(home):]
	if rest == "" || strings.HasPrefix(rest, "/") {
		return "~" + rest
	}
	return path
}
