// Package parser turns a token stream from tinysh/internal/token into a
// Pipeline: an ordered sequence of Commands connected by pipes, with
// per-stage redirections and an optional trailing background marker.
package parser

import (
	"strings"

	"tinysh/internal/token"
)

// MaxPrintableLen bounds the printable command-line string a Pipeline
// reconstructs for job-table display.
const MaxPrintableLen = 1024

// Redirect is one opened-or-not redirection slot: a target path and
// whether it should be opened in append mode.
type Redirect struct {
	Path   string
	Append bool
}

// Command is one stage of a Pipeline.
type Command struct {
	Argv   []string
	Stdin  *Redirect
	Stdout *Redirect
	Stderr *Redirect

	// Next links to the following stage; nil for the last stage.
	Next *Command

	// Background is only meaningful on the head of the Pipeline.
	Background bool
}

// Pipeline is a non-empty ordered sequence of Commands.
type Pipeline struct {
	stages []*Command
}

// Stages returns the pipeline's stages in order.
func (p *Pipeline) Stages() []*Command { return p.stages }

// Len reports the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Background reports whether the pipeline was parsed with a trailing "&".
func (p *Pipeline) Background() bool {
	if len(p.stages) == 0 {
		return false
	}
	return p.stages[0].Background
}

// String reconstructs a printable command line for the pipeline,
// truncated gracefully at MaxPrintableLen characters.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for i, c := range p.stages {
		if i > 0 {
			sb.WriteString(" | ")
		}
		for j, a := range c.Argv {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(quoteIfNeeded(a))
		}
		if c.Stdin != nil {
			sb.WriteString(" < ")
			sb.WriteString(c.Stdin.Path)
		}
		if c.Stdout != nil {
			if c.Stdout.Append {
				sb.WriteString(" >> ")
			} else {
				sb.WriteString(" > ")
			}
			sb.WriteString(c.Stdout.Path)
		}
		if c.Stderr != nil {
			if c.Stderr.Append {
				sb.WriteString(" 2>> ")
			} else {
				sb.WriteString(" 2> ")
			}
			sb.WriteString(c.Stderr.Path)
		}
	}
	if p.Background() {
		sb.WriteString(" &")
	}
	s := sb.String()
	if len(s) <= MaxPrintableLen {
		return s
	}
	if MaxPrintableLen <= 3 {
		return s[:MaxPrintableLen]
	}
	return s[:MaxPrintableLen-3] + "..."
}

func quoteIfNeeded(word string) string {
	if word == "" || strings.ContainsAny(word, " \t\n'\"") {
		return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
	}
	return word
}

// ParseError reports a syntax error encountered while parsing a line.
// It aborts only the current line; the caller should print it and
// return to the prompt.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func parseError(msg string) error { return &ParseError{Msg: msg} }

// Parse converts a raw input line into a Pipeline. It returns (nil, nil)
// for a whitespace-only line ("no command": the executor performs no
// work), and a *ParseError for any syntax problem.
func Parse(line string) (*Pipeline, error) {
	lex := token.New(line)

	var commands []*Command
	cur := &Command{}
	var pendingKind token.Kind
	hasPending := false
	background := false

loop:
	for {
		tok := lex.Next()

		switch tok.Kind {
		case token.ERROR:
			return nil, parseError(tok.Value)

		case token.END:
			break loop

		case token.WORD:
			if hasPending {
				if err := setRedirect(cur, pendingKind, tok.Value); err != nil {
					return nil, err
				}
				hasPending = false
			} else {
				cur.Argv = append(cur.Argv, tok.Value)
			}

		case token.PIPE:
			if hasPending {
				return nil, parseError("expected word after redirection operator")
			}
			if len(cur.Argv) == 0 {
				return nil, parseError("parse error near `|`")
			}
			commands = append(commands, cur)
			cur = &Command{}

		case token.REDIR_IN, token.REDIR_OUT, token.REDIR_OUT_APPEND, token.REDIR_ERR, token.REDIR_ERR_APPEND:
			if hasPending {
				return nil, parseError("expected word after redirection operator")
			}
			pendingKind = tok.Kind
			hasPending = true

		case token.AMP:
			if hasPending {
				return nil, parseError("expected word after redirection operator")
			}
			next := lex.Next()
			if next.Kind == token.ERROR {
				return nil, parseError(next.Value)
			}
			if next.Kind != token.END {
				return nil, parseError("parse error near `&`")
			}
			background = true
			break loop
		}
	}

	if hasPending {
		return nil, parseError("expected word after redirection operator")
	}

	if len(cur.Argv) > 0 {
		commands = append(commands, cur)
	} else if len(commands) > 0 {
		return nil, parseError("empty command")
	}

	if len(commands) == 0 {
		return nil, nil
	}

	for i := 0; i+1 < len(commands); i++ {
		commands[i].Next = commands[i+1]
	}
	commands[0].Background = background

	return &Pipeline{stages: commands}, nil
}

func setRedirect(c *Command, kind token.Kind, path string) error {
	switch kind {
	case token.REDIR_IN:
		if c.Stdin != nil {
			return parseError("stdin redirection already set")
		}
		c.Stdin = &Redirect{Path: path}
	case token.REDIR_OUT:
		if c.Stdout != nil {
			return parseError("stdout redirection already set")
		}
		c.Stdout = &Redirect{Path: path}
	case token.REDIR_OUT_APPEND:
		if c.Stdout != nil {
			return parseError("stdout redirection already set")
		}
		c.Stdout = &Redirect{Path: path, Append: true}
	case token.REDIR_ERR:
		if c.Stderr != nil {
			return parseError("stderr redirection already set")
		}
		c.Stderr = &Redirect{Path: path}
	case token.REDIR_ERR_APPEND:
		if c.Stderr != nil {
			return parseError("stderr redirection already set")
		}
		c.Stderr = &Redirect{Path: path, Append: true}
	}
	return nil
}
