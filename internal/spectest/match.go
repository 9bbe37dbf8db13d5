package spectest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StdoutMode selects how captured output is compared.
type StdoutMode int

const (
	StdoutNone StdoutMode = iota
	StdoutExact
	StdoutContains
	// StdoutFile compares against a golden file; Value is its path,
	// relative paths resolve against the base directory.
	StdoutFile
)

type StdoutExpectation struct {
	Mode  StdoutMode
	Value string
}

func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func (e StdoutExpectation) want(baseDir string) (string, error) {
	if e.Mode != StdoutFile {
		return NormalizeNewlines(e.Value), nil
	}
	if e.Value == "" {
		return "", errors.New("stdout file path is empty")
	}
	path := e.Value
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return NormalizeNewlines(string(b)), nil
}

// MatchStdout reports whether got satisfies exp. On a mismatch the reason
// names the first differing line.
func MatchStdout(got string, exp StdoutExpectation, baseDir string) (bool, string, error) {
	if exp.Mode == StdoutNone {
		return true, "", nil
	}
	want, err := exp.want(baseDir)
	if err != nil {
		return false, "", err
	}
	got = NormalizeNewlines(got)

	switch exp.Mode {
	case StdoutExact, StdoutFile:
		if got == want {
			return true, "", nil
		}
		return false, fmt.Sprintf("stdout mismatch at line %d: expected %q, got %q", firstDiffLine(want, got), want, got), nil
	case StdoutContains:
		if strings.Contains(got, want) {
			return true, "", nil
		}
		return false, fmt.Sprintf("stdout mismatch: expected to contain %q, got %q", want, got), nil
	}
	return false, "", fmt.Errorf("unknown stdout mode %d", exp.Mode)
}

func firstDiffLine(a, b string) int {
	al := strings.Split(a, "\n")
	bl := strings.Split(b, "\n")
	for i := 0; i < len(al) && i < len(bl); i++ {
		if al[i] != bl[i] {
			return i + 1
		}
	}
	return min(len(al), len(bl)) + 1
}
