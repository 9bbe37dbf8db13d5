package spectest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// RunDir runs every *.tp program in dir in all modes. A program's stdout
// must match its sibling .out file; a sibling .err file holds the expected
// error code on its first line and, optionally, a message fragment on the
// second.
func RunDir(t *testing.T, dir string) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(dir, "*.tp"))
	if err != nil {
		t.Fatalf("glob %s: %v", dir, err)
	}
	if len(paths) == 0 {
		t.Fatalf("no programs in %s", dir)
	}

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".tp")
		src, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		exp, err := readErrExpectation(filepath.Join(dir, name+".err"))
		if err != nil {
			t.Fatalf("read expectation for %s: %v", name, err)
		}

		for _, mode := range Modes {
			t.Run(name+"/"+string(mode), func(t *testing.T) {
				res := Run(t, Options{Mode: mode, Source: string(src), Entry: filepath.Base(path)})

				ok, reason, err := MatchStdout(res.Stdout, StdoutExpectation{Mode: StdoutFile, Value: name + ".out"}, dir)
				if err != nil {
					t.Fatalf("stdout check failed: %v", err)
				}
				if !ok {
					t.Fatal(reason)
				}
				exp.Stdout = res.Stdout
				Assert(t, res, exp)
			})
		}
	}
}

func readErrExpectation(path string) (Expectation, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Expectation{}, nil
	}
	if err != nil {
		return Expectation{}, err
	}
	lines := strings.SplitN(strings.TrimSpace(NormalizeNewlines(string(b))), "\n", 2)
	exp := Expectation{ErrCode: strings.TrimSpace(lines[0])}
	if len(lines) == 2 {
		exp.ErrContains = strings.TrimSpace(lines[1])
	}
	return exp, nil
}
