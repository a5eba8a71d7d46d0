package parser

import "testing"

func TestParseSimpleCommand(t *testing.T) {
	p, err := Parse("echo hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("got %d stages, want 1", p.Len())
	}
	c := p.Stages()[0]
	want := []string{"echo", "hello", "world"}
	if len(c.Argv) != len(want) {
		t.Fatalf("got argv %v, want %v", c.Argv, want)
	}
	for i := range want {
		if c.Argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, c.Argv[i], want[i])
		}
	}
	if p.Background() {
		t.Error("expected Background() false")
	}
}

func TestParseEmptyLine(t *testing.T) {
	p, err := Parse("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Fatalf("got %+v, want nil for a blank line", p)
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := Parse("cat file | grep foo | wc -l")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 3 {
		t.Fatalf("got %d stages, want 3", p.Len())
	}
	stages := p.Stages()
	for i := 0; i+1 < len(stages); i++ {
		if stages[i].Next != stages[i+1] {
			t.Errorf("stage %d.Next does not point at stage %d", i, i+1)
		}
	}
	if stages[2].Next != nil {
		t.Error("last stage.Next should be nil")
	}
}

func TestParseBackground(t *testing.T) {
	p, err := Parse("sleep 10 &")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Background() {
		t.Error("expected Background() true")
	}
}

func TestParseRedirections(t *testing.T) {
	p, err := Parse("cmd < in.txt > out.txt 2>> err.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := p.Stages()[0]
	if c.Stdin == nil || c.Stdin.Path != "in.txt" {
		t.Errorf("got Stdin %+v, want in.txt", c.Stdin)
	}
	if c.Stdout == nil || c.Stdout.Path != "out.txt" || c.Stdout.Append {
		t.Errorf("got Stdout %+v, want out.txt non-append", c.Stdout)
	}
	if c.Stderr == nil || c.Stderr.Path != "err.txt" || !c.Stderr.Append {
		t.Errorf("got Stderr %+v, want err.txt append", c.Stderr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"leading pipe", "| echo hi"},
		{"trailing pipe", "echo hi |"},
		{"double stdin redirect", "cmd < a < b"},
		{"redirect with no target", "cmd >"},
		{"amp not at end", "echo hi & echo bye"},
		{"unclosed quote", "echo 'unterminated"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.line)
			if err == nil {
				t.Fatalf("Parse(%q) = %+v, want error", tc.line, p)
			}
			if _, ok := err.(*ParseError); !ok {
				t.Errorf("got error type %T, want *ParseError", err)
			}
		})
	}
}

func TestPipelineStringRoundTrip(t *testing.T) {
	p, err := Parse("echo 'hello world' > out.txt &")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := p.String()
	want := "echo 'hello world' > out.txt &"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPipelineStringTruncates(t *testing.T) {
	long := make([]byte, MaxPrintableLen+500)
	for i := range long {
		long[i] = 'a'
	}
	p, err := Parse("echo " + string(long))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := p.String()
	if len(got) != MaxPrintableLen {
		t.Fatalf("got len %d, want %d", len(got), MaxPrintableLen)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("got suffix %q, want ...", got[len(got)-3:])
	}
}
