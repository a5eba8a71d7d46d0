// Package redirect opens the files named by a Command's redirection
// slots and produces the *os.File values os/exec needs for a child's
// stdin/stdout/stderr.
//
// spec.md phrases this as running "inside a freshly forked child"; Go's
// os/exec gives no hook to run code between fork and exec, so the open
// happens in the parent, before Start, and the resulting *os.File is
// handed to exec.Cmd. The effect on the child is identical: by the time
// it execs, fd 0/1/2 are exactly the files or pipe ends the spec
// describes, opened with the same flags and mode.
package redirect

import (
	"fmt"
	"os"

	"tinysh/internal/parser"
)

const fileMode = 0o644

// Open resolves a Command's redirection slots into *os.File values
// ready to be assigned to an exec.Cmd's Stdin/Stdout/Stderr. Any slot
// left unset in the Command yields a nil *os.File (the caller falls
// back to the adjacent pipe connection or the shell's own stdio). The
// caller is responsible for closing the returned files once the child
// has started.
func Open(c *parser.Command) (stdin, stdout, stderr *os.File, err error) {
	if c.Stdin != nil {
		stdin, err = os.Open(c.Stdin.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", c.Stdin.Path, err)
		}
	}

	if c.Stdout != nil {
		stdout, err = openOutput(c.Stdout.Path, c.Stdout.Append)
		if err != nil {
			closeAll(stdin)
			return nil, nil, nil, fmt.Errorf("%s: %w", c.Stdout.Path, err)
		}
	}

	if c.Stderr != nil {
		stderr, err = openOutput(c.Stderr.Path, c.Stderr.Append)
		if err != nil {
			closeAll(stdin, stdout)
			return nil, nil, nil, fmt.Errorf("%s: %w", c.Stderr.Path, err)
		}
	}

	return stdin, stdout, stderr, nil
}

func openOutput(path string, appendMode bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(path, flags, fileMode)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
