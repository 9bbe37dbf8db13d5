package repl

import (
	"bytes"
	"strings"
	"testing"

	"tadpole/internal/config"
)

func runREPL(input string) string {
	var out bytes.Buffer
	Start(strings.NewReader(input), &out, Options{Config: config.Default()})
	return out.String()
}

func TestGlobalsPersistAcrossChunks(t *testing.T) {
	got := runREPL("var a = 1;\nvar b = a + 1;\nprint(a, b);\n")
	if got != "1 2\n" {
		t.Fatalf("expected %q, got %q", "1 2\n", got)
	}
}

func TestMultiLineChunk(t *testing.T) {
	got := runREPL("fun f(x) {\n  return x * 2;\n}\nprint(f(21));\n")
	if got != "42\n" {
		t.Fatalf("expected 42, got %q", got)
	}
}

func TestRuntimeErrorResetsAndContinues(t *testing.T) {
	got := runREPL("var a = 5;\nnil + 1;\nprint(a);\n")
	if !strings.Contains(got, "operands must be numbers") {
		t.Fatalf("expected runtime error in output, got %q", got)
	}
	if !strings.HasSuffix(got, "5\n") {
		t.Fatalf("expected session to continue after the error, got %q", got)
	}
}

func TestCompileErrorIsReported(t *testing.T) {
	got := runREPL("var = ;\nprint(1);\n")
	if !strings.Contains(got, "<repl>:1:5: error TC0001") {
		t.Fatalf("expected diagnostic, got %q", got)
	}
	if !strings.HasSuffix(got, "1\n") {
		t.Fatalf("expected session to continue, got %q", got)
	}
}

func TestExitEndsSession(t *testing.T) {
	got := runREPL("print(1);\nexit();\nprint(2);\n")
	if got != "1\n" {
		t.Fatalf("expected output to stop at exit, got %q", got)
	}
}

func TestPromptsWhenInteractive(t *testing.T) {
	var out bytes.Buffer
	Start(strings.NewReader("{\n}\n"), &out, Options{Config: config.Default(), Prompt: true})
	got := out.String()
	if !strings.Contains(got, prompt1) || !strings.Contains(got, prompt2) {
		t.Fatalf("expected both prompts, got %q", got)
	}
}

func TestUpdateBalance(t *testing.T) {
	tests := []struct {
		line         string
		braces       int
		parens       int
		inString     bool
		wantBraces   int
		wantParens   int
		wantInString bool
	}{
		{"fun f() {", 0, 0, false, 1, 0, false},
		{"print(\"{\"", 0, 0, false, 0, 1, false},
		{"\"open", 0, 0, false, 0, 0, true},
		{"still\" }", 1, 0, true, 0, 0, false},
		{"// { (", 0, 0, false, 0, 0, false},
	}
	for _, tt := range tests {
		b, p, s := updateBalance(tt.line, tt.braces, tt.parens, tt.inString)
		if b != tt.wantBraces || p != tt.wantParens || s != tt.wantInString {
			t.Fatalf("%q: expected (%d,%d,%v), got (%d,%d,%v)",
				tt.line, tt.wantBraces, tt.wantParens, tt.wantInString, b, p, s)
		}
	}
}
