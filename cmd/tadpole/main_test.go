package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tadpole/internal/code"
	"tadpole/internal/image"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunSourceFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.tp", `
fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
print(fib(10), "done");`)

	for _, args := range [][]string{{"run", path}, {path}} {
		code, out, errOut := runCLI(t, "", args...)
		if code != exitOK {
			t.Fatalf("expected exit 0, got %d: %s", code, errOut)
		}
		if out != "55 done\n" {
			t.Fatalf("expected %q, got %q", "55 done\n", out)
		}
	}
}

func TestCompileErrorExitCode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.tp", "var x = ;")
	code, _, errOut := runCLI(t, "", "run", path)
	if code != exitCompile {
		t.Fatalf("expected exit %d, got %d", exitCompile, code)
	}
	if !strings.Contains(errOut, "bad.tp:1:9: error TC0001: at ';': expected expression") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestRuntimeErrorExitCode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "boom.tp", "fun f() { return 1 + nil; }\nf();")
	code, _, errOut := runCLI(t, "", "run", path)
	if code != exitRuntime {
		t.Fatalf("expected exit %d, got %d", exitRuntime, code)
	}
	for _, want := range []string{"error: operands must be numbers", "at f (boom.tp:1:", "at <script> (boom.tp:2:"} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("expected %q in stderr, got %q", want, errOut)
		}
	}
}

func TestExitNativeStopsCleanly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "exit.tp", `print("a"); exit(); print("b");`)
	code, out, _ := runCLI(t, "", path)
	if code != exitOK || out != "a\n" {
		t.Fatalf("expected exit 0 with %q, got %d with %q", "a\n", code, out)
	}
}

func TestBuildThenRunImage(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.tp", `
fun counter() { var n = 0; return fun () { n = n + 1; return n; }; }
var c = counter(); c();
print(c(), pair("x", 1).first);`)

	code, _, errOut := runCLI(t, "", "build", src)
	if code != exitOK {
		t.Fatalf("build failed with %d: %s", code, errOut)
	}
	img := filepath.Join(dir, "prog.tpc")
	if _, err := os.Stat(img); err != nil {
		t.Fatalf("expected image at %s: %v", img, err)
	}

	code, out, errOut := runCLI(t, "", "run", img)
	if code != exitOK {
		t.Fatalf("running image failed with %d: %s", code, errOut)
	}
	if out != "2 x\n" {
		t.Fatalf("expected %q, got %q", "2 x\n", out)
	}
}

func TestBuildOutputFlag(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "a.tp", `print(1);`)
	out := filepath.Join(dir, "custom.img")
	if code, _, errOut := runCLI(t, "", "build", "-o", out, src); code != exitOK {
		t.Fatalf("build failed with %d: %s", code, errOut)
	}
	if code, stdout, _ := runCLI(t, "", out); code != exitOK || stdout != "1\n" {
		t.Fatalf("expected image to print 1, got %d %q", code, stdout)
	}
}

func TestCorruptImage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.tpc", "\x89TPC garbage")
	code, _, errOut := runCLI(t, "", path)
	if code != exitCompile {
		t.Fatalf("expected exit %d, got %d (%s)", exitCompile, code, errOut)
	}
}

func TestMalformedImageRejectedBeforeRunning(t *testing.T) {
	data, err := image.Marshal(&image.Program{
		Version: image.Version,
		Main:    &image.Proto{Code: append(code.Make(code.OpGetUpvalue, 5), code.Make(code.OpReturn)...)},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, t.TempDir(), "bad.tpc", string(data))
	exit, _, errOut := runCLI(t, "", path)
	if exit != exitCompile {
		t.Fatalf("expected exit %d, got %d (%s)", exitCompile, exit, errOut)
	}
	if !strings.Contains(errOut, "upvalue 5 out of range") {
		t.Fatalf("expected verification error, got %q", errOut)
	}
}

func TestTokensFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.tp", "var x = 1;")
	code, out, _ := runCLI(t, "", "-tokens", path)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"VAR", "IDENT", `"x"`, "NUMBER", "EOF"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in token dump, got %q", want, out)
		}
	}
}

func TestDisFlag(t *testing.T) {
	path := writeFile(t, t.TempDir(), "d.tp", "fun f() { return 1; } print(f());")
	code, out, _ := runCLI(t, "", "-dis", path)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"== <script> (arity 0, upvalues 0) ==", "== f (arity 0, upvalues 0) ==", "OpClosure", "1\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestConfigFileLimitsSteps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tadpole.toml", "[vm]\nmax-steps = 10\n")
	path := writeFile(t, dir, "loop.tp", "while (true) {}")

	code, _, errOut := runCLI(t, "", path)
	if code != exitRuntime {
		t.Fatalf("expected exit %d, got %d", exitRuntime, code)
	}
	if !strings.Contains(errOut, "max instruction count exceeded (10)") {
		t.Fatalf("unexpected stderr %q", errOut)
	}

	// the flag overrides the file
	code, _, errOut = runCLI(t, "", "-max-steps", "20", path)
	if !strings.Contains(errOut, "max instruction count exceeded (20)") || code != exitRuntime {
		t.Fatalf("expected the flag budget, got %d %q", code, errOut)
	}
}

func TestExplicitConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "broken.toml", "[gc]\ngrowth = 0.5\n")
	path := writeFile(t, dir, "x.tp", "print(1);")
	code, _, errOut := runCLI(t, "", "-config", cfg, path)
	if code != exitUsage || !strings.Contains(errOut, "gc.growth") {
		t.Fatalf("expected a config error naming gc.growth, got %d %q", code, errOut)
	}
}

func TestStressFlagKeepsOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.tp", `
var l = nil;
for (var i = 0; i < 20; i = i + 1) l = pair(i, l);
print(l.first, l.second.first);`)
	code, out, errOut := runCLI(t, "", "-stress-gc", path)
	if code != exitOK || out != "19 18\n" {
		t.Fatalf("expected %q, got %d %q (%s)", "19 18\n", code, out, errOut)
	}
}

func TestREPLFromStdin(t *testing.T) {
	code, out, _ := runCLI(t, "var a = 2;\nprint(a * 21);\n", "repl")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if out != "42\n" {
		t.Fatalf("expected %q, got %q", "42\n", out)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := [][]string{
		{"-nope"},
		{"run"},
		{"run", "a.tp", "b.tp"},
		{"repl", "extra"},
		{"-dis", "repl"},
		{"build"},
		{filepath.Join(t.TempDir(), "missing.tp")},
	}
	for _, args := range tests {
		if code, _, _ := runCLI(t, "", args...); code != exitUsage {
			t.Fatalf("expected exit %d for %v, got %d", exitUsage, args, code)
		}
	}
}
