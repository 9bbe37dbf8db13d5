// Package natives provides the host functions scripts can call.
package natives

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tadpole/internal/value"
	"tadpole/internal/vm"
)

type Options struct {
	// Stdout receives print output; nil means os.Stdout.
	Stdout io.Writer
	// Now is the clock source; nil means time.Now.
	Now func() time.Time
}

// Install binds print, clock, exit, gc and heapSize as globals of m.
func Install(m *vm.VM, opts Options) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	h := m.Heap()

	m.DefineNative("print", value.VariadicArity, func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = h.Stringify(a)
		}
		if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
			return value.Nil(), fmt.Errorf("print: %w", err)
		}
		return value.Nil(), nil
	})

	m.DefineNative("clock", 0, func([]value.Value) (value.Value, error) {
		return value.Number(now().Sub(start).Seconds()), nil
	})

	m.DefineNative("exit", 0, func([]value.Value) (value.Value, error) {
		m.Stop()
		return value.Nil(), nil
	})

	m.DefineNative("gc", 0, func([]value.Value) (value.Value, error) {
		return value.Number(float64(m.Collect().Freed)), nil
	})

	m.DefineNative("heapSize", 0, func([]value.Value) (value.Value, error) {
		return value.Number(float64(h.Live())), nil
	})
}
