package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"tadpole/internal/compiler"
	"tadpole/internal/config"
	"tadpole/internal/heap"
	"tadpole/internal/image"
	"tadpole/internal/lexer"
	"tadpole/internal/logging"
	"tadpole/internal/natives"
	"tadpole/internal/repl"
	"tadpole/internal/runtimeio"
	"tadpole/internal/token"
	"tadpole/internal/value"
	"tadpole/internal/vm"
)

// Exit codes follow sysexits.h.
const (
	exitOK      = 0
	exitUsage   = 1
	exitCompile = 65
	exitRuntime = 70
)

const usage = `usage:
  tadpole [flags]                    start the REPL
  tadpole [flags] repl               start the REPL
  tadpole [flags] [run] <file>       run a .tp source file or a .tpc image
  tadpole [flags] build [-o out] <file>
                                     compile a source file to an image

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	verbosity  int
	stress     bool
	maxSteps   int64
	tokens     bool
	dis        bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("tadpole", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.BoolVar(&c.tokens, "tokens", false, "print tokens instead of running")
	fs.BoolVar(&c.dis, "dis", false, "dump bytecode instructions and constants before running")
	fs.StringVar(&c.configPath, "config", "", "configuration file (default: nearest "+config.FileName+")")
	fs.IntVar(&c.verbosity, "v", -1, "log verbosity, overriding log.verbosity")
	fs.BoolVar(&c.stress, "stress-gc", false, "collect garbage before every allocation")
	fs.Int64Var(&c.maxSteps, "max-steps", -1, "instruction budget, 0 for unlimited, overriding vm.max-steps")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	rest := fs.Args()
	cmd := "repl"
	if len(rest) > 0 {
		cmd = rest[0]
		rest = rest[1:]
		switch cmd {
		case "repl", "run", "build":
		default:
			cmd = "run"
			rest = fs.Args()
		}
	}

	switch cmd {
	case "repl":
		if c.tokens || c.dis {
			fmt.Fprintln(stderr, "repl does not support -tokens or -dis")
			return exitUsage
		}
		if len(rest) != 0 {
			fmt.Fprintln(stderr, "usage: tadpole repl")
			return exitUsage
		}
		cfg, ok := c.loadConfig(".")
		if !ok {
			return exitUsage
		}
		repl.Start(stdin, stdout, repl.Options{Config: cfg, Prompt: c.interactive()})
		return exitOK
	case "build":
		return c.build(rest)
	default:
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "usage: tadpole run <file>")
			return exitUsage
		}
		return c.runFile(rest[0])
	}
}

// loadConfig reads -config or the nearest tadpole.toml above dir, applies
// flag overrides and configures logging.
func (c *cli) loadConfig(dir string) (config.Config, bool) {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.FindAndLoad(dir)
	}
	if err != nil {
		fmt.Fprintln(c.stderr, "config error:", err)
		return config.Config{}, false
	}

	if c.verbosity >= 0 {
		cfg.Log.Verbosity = c.verbosity
	}
	if c.stress {
		cfg.GC.Stress = true
	}
	if c.maxSteps >= 0 {
		cfg.VM.MaxSteps = c.maxSteps
	}
	logging.Configure(cfg.Log.Verbosity, cfg.Log.File)
	if cfg.Path != "" {
		logging.Logger("cli").Debugf("using configuration %s", cfg.Path)
	}
	return cfg, true
}

func (c *cli) interactive() bool {
	f, ok := c.stdin.(*os.File)
	return ok && runtimeio.IsTerminal(f)
}

func (c *cli) runFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitUsage
	}

	if c.tokens {
		if image.IsImage(data) {
			fmt.Fprintln(c.stderr, "-tokens needs a source file, not an image")
			return exitUsage
		}
		printTokens(c.stdout, string(data))
		return exitOK
	}

	cfg, ok := c.loadConfig(filepath.Dir(path))
	if !ok {
		return exitUsage
	}

	m := vm.NewWithConfig(cfg)
	defer m.Free()
	m.SetFile(filepath.Base(path))
	m.SetErrorOutput(c.stderr)
	natives.Install(m, natives.Options{Stdout: c.stdout})

	fn, code := c.load(m, path, data)
	if code != exitOK {
		return code
	}
	if c.dis {
		fmt.Fprint(c.stdout, compiler.Disassemble(m.Heap(), fn))
		fmt.Fprintln(c.stdout)
	}

	stop := stopOnInterrupt(m)
	defer stop()

	res, _ := m.InterpretFunction(fn)
	totals := m.Heap().Totals()
	logging.Logger("cli").Infof("%s: %s, %d collections, %d objects freed",
		filepath.Base(path), res, totals.Collections, totals.Freed)

	switch res {
	case vm.ResultCompileError:
		return exitCompile
	case vm.ResultRuntimeError:
		return exitRuntime
	}
	return exitOK
}

// load compiles source or decodes an image into the VM's heap. The returned
// function is unrooted, so nothing may allocate before it runs.
func (c *cli) load(m *vm.VM, path string, data []byte) (value.Ref, int) {
	if image.IsImage(data) {
		prog, err := image.Unmarshal(data)
		if err != nil {
			fmt.Fprintf(c.stderr, "%s: %v\n", path, err)
			return value.Ref{}, exitCompile
		}
		if prog.File != "" {
			m.SetFile(prog.File)
		}
		fn, err := image.Load(m.Heap(), prog)
		if err != nil {
			fmt.Fprintf(c.stderr, "%s: %v\n", path, err)
			return value.Ref{}, exitCompile
		}
		return fn, exitOK
	}

	fn, err := compiler.NewWithFile(m.Heap(), filepath.Base(path)).Compile(string(data))
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return value.Ref{}, exitCompile
	}
	return fn, exitOK
}

func (c *cli) build(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	out := fs.String("o", "", "output path (default: the source path with a .tpc extension)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "usage: tadpole build [-o out] <file>")
		return exitUsage
	}
	path := fs.Arg(0)
	if *out == "" {
		*out = strings.TrimSuffix(path, filepath.Ext(path)) + ".tpc"
	}

	cfg, ok := c.loadConfig(filepath.Dir(path))
	if !ok {
		return exitUsage
	}
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return exitUsage
	}

	h := heap.New()
	h.SetThreshold(cfg.GC.Threshold)
	h.SetStress(cfg.GC.Stress)
	defer h.Release()

	name := filepath.Base(path)
	fn, err := compiler.NewWithFile(h, name).Compile(string(src))
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return exitCompile
	}
	if c.dis {
		fmt.Fprint(c.stdout, compiler.Disassemble(h, fn))
	}

	prog, err := image.FromFunction(h, fn, name)
	if err != nil {
		fmt.Fprintln(c.stderr, "build error:", err)
		return exitCompile
	}
	data, err := image.Marshal(prog)
	if err != nil {
		fmt.Fprintln(c.stderr, "build error:", err)
		return exitCompile
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(c.stderr, "write error:", err)
		return exitUsage
	}
	logging.Logger("cli").Infof("wrote %s (%d bytes)", *out, len(data))
	return exitOK
}

// stopOnInterrupt makes Ctrl+C halt m at its next instruction. The returned
// func releases the signal handler.
func stopOnInterrupt(m *vm.VM) func() {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sig, os.Interrupt)
	go func() {
		select {
		case <-sig:
			m.Stop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func printTokens(w io.Writer, src string) {
	l := lexer.New(src)
	for {
		tok := l.NextToken()
		fmt.Fprintf(w, "%4d:%-3d  %-10s  %q\n", tok.Line, tok.Col, tok.Type, tok.Literal)
		if tok.Type == token.EOF {
			return
		}
	}
}
