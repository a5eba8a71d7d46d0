// Package shellstate holds the shell's process-wide state that isn't
// the job table: the last observed exit code and the program name used
// as the prefix on every diagnostic.
package shellstate

import "strings"

// State is the shell's process-wide scalar state.
type State struct {
	LastExitCode int
	ProgramName  string
}

// New returns a State with the given program name and a zero exit code.
func New(programName string) *State {
	return &State{ProgramName: programName}
}

// SetExitCode records code, masked to 8 bits as spec.md requires of
// last_exit_code.
func (s *State) SetExitCode(code int) {
	s.LastExitCode = code & 0xff
}

// Diagnostic formats a user-visible error message using the shared
// prefix format: "<program>: [<function>: ]<message>[: <os-error-text>]".
func (s *State) Diagnostic(function, message string, cause error) string {
	var sb strings.Builder
	sb.WriteString(s.ProgramName)
	sb.WriteString(": ")
	if function != "" {
		sb.WriteString(function)
		sb.WriteString(": ")
	}
	sb.WriteString(message)
	if cause != nil {
		sb.WriteString(": ")
		sb.WriteString(cause.Error())
	}
	return sb.String()
}
