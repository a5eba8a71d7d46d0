// Package pathresolve resolves a bare command name to an executable
// file using the PATH search list, the same contract a shell's exec
// step relies on before replacing (or in tinysh's case, starting) the
// child process image.
package pathresolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pathMax is the PATH_MAX bound on a candidate path; a PATH component
// whose joined candidate is longer is skipped.
const pathMax = 4096

// Resolve finds an executable for name. If name contains a "/" it is
// treated as a literal path, accepted iff it is executable. Otherwise
// each colon-separated component of the PATH environment variable is
// tried in order; the first that yields an executable file wins.
func Resolve(name string) (string, error) {
	if strings.Contains(name, "/") {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	pathEnv, ok := os.LookupEnv("PATH")
	if !ok {
		return "", fmt.Errorf("%s: PATH not set", name)
	}

	for _, dir := range strings.Split(pathEnv, ":") {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if len(candidate) > pathMax {
			continue
		}
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: command not found", name)
}

// checkExecutable reports whether path names an existing non-directory
// with at least one executable bit set. Other non-regular files are not
// rejected.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s: permission denied", path)
	}
	return nil
}
