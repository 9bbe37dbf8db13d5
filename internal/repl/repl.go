package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"tadpole/internal/config"
	"tadpole/internal/natives"
	"tadpole/internal/vm"
)

const (
	prompt1 = "tadpole> "
	prompt2 = "....> "
)

type Options struct {
	Config config.Config
	// Prompt enables the banner and prompts; hosts disable it when input is
	// not a terminal.
	Prompt bool
}

// Start reads chunks from in and runs each one in a single VM, so globals
// persist between chunks. A chunk ends when its braces and parentheses
// balance.
func Start(in io.Reader, out io.Writer, opts Options) {
	scanner := bufio.NewScanner(in)

	m := vm.NewWithConfig(opts.Config)
	m.SetFile("<repl>")
	m.SetErrorOutput(out)
	natives.Install(m, natives.Options{Stdout: out})
	defer m.Free()

	if opts.Prompt {
		fmt.Fprint(out, "Tadpole REPL (Ctrl+D to exit)\n")
	}

	var buf strings.Builder
	depthBraces := 0
	depthParens := 0
	inString := false

	for {
		if opts.Prompt {
			if buf.Len() == 0 {
				fmt.Fprint(out, prompt1)
			} else {
				fmt.Fprint(out, prompt2)
			}
		}

		if !scanner.Scan() {
			if opts.Prompt {
				fmt.Fprint(out, "\n")
			}
			return
		}

		line := scanner.Text()
		if buf.Len() == 0 && strings.TrimSpace(line) == "" {
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		depthBraces, depthParens, inString = updateBalance(line, depthBraces, depthParens, inString)
		if depthBraces > 0 || depthParens > 0 || inString {
			continue
		}

		src := buf.String()
		buf.Reset()

		// errors were already written to out
		res, _ := m.Interpret(src)
		if m.Stopped() {
			return
		}
		if res == vm.ResultRuntimeError {
			m.Reset()
		}
	}
}

func updateBalance(line string, braces, parens int, inString bool) (int, int, bool) {
	for i := 0; i < len(line); i++ {
		ch := line[i]

		if inString {
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			break
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		}
	}
	return braces, parens, inString
}
