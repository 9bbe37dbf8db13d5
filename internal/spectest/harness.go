// Package spectest runs tadpole programs end to end for conformance tests.
// Every program can be run from source, through an encoded image, or with
// the collector running before every allocation; all three must agree.
package spectest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"tadpole/internal/compiler"
	"tadpole/internal/config"
	"tadpole/internal/heap"
	"tadpole/internal/image"
	"tadpole/internal/natives"
	"tadpole/internal/vm"
)

type Mode string

const (
	ModeSource Mode = "source"
	ModeImage  Mode = "image"
	ModeStress Mode = "stress"
)

// Modes lists every mode in the order tests run them.
var Modes = []Mode{ModeSource, ModeImage, ModeStress}

type Options struct {
	Mode     Mode
	Source   string
	Entry    string
	MaxSteps int64
}

type Expectation struct {
	Stdout string
	// ErrCode is the printed Result, "ECOMPILE" or "ERUNTIME".
	ErrCode     string
	ErrContains string
}

type Result struct {
	Stdout  string
	ErrCode string
	ErrMsg  string
}

func Run(t *testing.T, opts Options) Result {
	t.Helper()

	entry := opts.Entry
	if entry == "" {
		entry = "main.tp"
	}

	cfg := config.Default()
	cfg.VM.MaxSteps = opts.MaxSteps
	if opts.Mode == ModeStress {
		cfg.GC.Stress = true
	}

	var stdout, stderr bytes.Buffer
	m := vm.NewWithConfig(cfg)
	defer m.Free()
	m.SetFile(entry)
	m.SetErrorOutput(&stderr)
	natives.Install(m, natives.Options{Stdout: &stdout})

	var (
		res vm.Result
		err error
	)
	switch opts.Mode {
	case ModeSource, ModeStress:
		res, err = m.Interpret(opts.Source)
	case ModeImage:
		res, err = runImage(t, m, entry, opts.Source)
	default:
		t.Fatalf("unknown mode: %q", opts.Mode)
	}

	out := Result{Stdout: stdout.String()}
	if res != vm.ResultOK {
		out.ErrCode = res.String()
		if err != nil {
			out.ErrMsg = err.Error()
		}
	}
	return out
}

// runImage compiles into a scratch heap, encodes and decodes the program,
// then loads it into m.
func runImage(t *testing.T, m *vm.VM, entry, source string) (vm.Result, error) {
	t.Helper()

	h := heap.New()
	defer h.Release()
	fn, err := compiler.NewWithFile(h, entry).Compile(source)
	if err != nil {
		return vm.ResultCompileError, err
	}

	prog, err := image.FromFunction(h, fn, entry)
	if err != nil {
		t.Fatalf("image conversion failed: %v", err)
	}
	data, err := image.Marshal(prog)
	if err != nil {
		t.Fatalf("image encoding failed: %v", err)
	}
	decoded, err := image.Unmarshal(data)
	if err != nil {
		t.Fatalf("image decoding failed: %v", err)
	}
	loaded, err := image.Load(m.Heap(), decoded)
	if err != nil {
		t.Fatalf("image loading failed: %v", err)
	}
	return m.InterpretFunction(loaded)
}

func Assert(t *testing.T, res Result, exp Expectation) {
	t.Helper()

	ok, reason, err := MatchStdout(res.Stdout, StdoutExpectation{
		Mode:  StdoutExact,
		Value: exp.Stdout,
	}, "")
	if err != nil {
		t.Fatalf("stdout check failed: %v", err)
	}
	if !ok {
		t.Fatal(reason)
	}

	wantErr := exp.ErrCode != "" || exp.ErrContains != ""
	gotErr := res.ErrCode != ""

	if wantErr && !gotErr {
		t.Fatalf("expected error %q/%q, got none", exp.ErrCode, exp.ErrContains)
	}
	if !wantErr && gotErr {
		t.Fatalf("unexpected error: %s", FormatError(res.ErrCode, res.ErrMsg))
	}

	if exp.ErrCode != "" && res.ErrCode != exp.ErrCode {
		t.Fatalf("error code mismatch: expected %q, got %q", exp.ErrCode, res.ErrCode)
	}
	if exp.ErrContains != "" && !strings.Contains(res.ErrMsg, exp.ErrContains) {
		t.Fatalf("error message mismatch: expected to contain %q, got %q", exp.ErrContains, res.ErrMsg)
	}
}

func ExpectAll(exp Expectation) map[Mode]Expectation {
	out := make(map[Mode]Expectation, len(Modes))
	for _, m := range Modes {
		out[m] = exp
	}
	return out
}

func Expect(mode Mode, exp Expectation) map[Mode]Expectation {
	return map[Mode]Expectation{mode: exp}
}

func FormatError(code, msg string) string {
	if code == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", code, msg)
}
