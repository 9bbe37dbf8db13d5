package spec_test

import (
	"testing"

	"tadpole/internal/spectest"
)

type specCase struct {
	name     string
	source   string
	maxSteps int64
	expect   map[spectest.Mode]spectest.Expectation
}

func runCases(t *testing.T, cases []specCase) {
	t.Helper()
	for _, tc := range cases {
		for mode, exp := range tc.expect {
			t.Run(tc.name+"/"+string(mode), func(t *testing.T) {
				res := spectest.Run(t, spectest.Options{
					Mode:     mode,
					Source:   tc.source,
					MaxSteps: tc.maxSteps,
				})
				spectest.Assert(t, res, exp)
			})
		}
	}
}

func TestSpecBaseline(t *testing.T) {
	runCases(t, []specCase{
		{
			name:   "arithmetic_precedence",
			source: "print(1 + 2 * 3);\nprint((1 + 2) * 3);\nprint(10 / 4, -3 - -3);",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "7\n9\n2.5 0\n"}),
		},
		{
			name:   "comparisons",
			source: "print(1 < 2, 2 <= 2, 3 > 4, 3 >= 4, 1 == 1, 1 != 1);",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "true true false false true false\n"}),
		},
		{
			name:   "equality_across_types",
			source: `print("a" == "a", "a" == "b", "1" == 1, nil == nil, nil == false);`,
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "true false false true false\n"}),
		},
		{
			name:   "truthiness",
			source: `if (0) print("zero"); if (nil) print("nil"); else print("not nil"); print(!nil, !0);`,
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "zero\nnot nil\ntrue false\n"}),
		},
		{
			name:   "logical_operators_short_circuit",
			source: `print(nil or "x", 1 and 2, false and crash());`,
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "x 2 false\n"}),
		},
		{
			name:   "block_shadowing",
			source: `var a = "outer"; { var a = "inner"; print(a); } print(a);`,
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "inner\nouter\n"}),
		},
		{
			name: "recursion",
			source: "fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }\n" +
				"print(fib(15));",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "610\n"}),
		},
		{
			name: "shared_upvalue",
			source: "var get; var set;\n" +
				"fun make() { var v = 1; fun g() { return v; } fun s(x) { v = x; } get = g; set = s; }\n" +
				"make(); set(5); print(get());",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "5\n"}),
		},
		{
			name:   "pairs_print_and_mutate",
			source: "var p = pair(1, pair(2, nil)); print(p); p.first = 10; print(p.first + p.second.first);",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "(1 . (2 . nil))\n12\n"}),
		},
		{
			name:   "function_values_print",
			source: "fun f() {} print(f, clock, fun () {});",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "<fn f> <native clock> <fn anonymous>\n"}),
		},
		{
			name:   "natives_gc_and_heap_size",
			source: "pair(1, 2); print(gc() >= 1, heapSize() > 0);",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "true true\n"}),
		},
		{
			name:   "exit_stops_without_error",
			source: "print(1); exit(); print(2);",
			expect: spectest.ExpectAll(spectest.Expectation{Stdout: "1\n"}),
		},
	})
}

func TestSpecRuntimeErrors(t *testing.T) {
	runtimeErr := func(stdout, msg string) map[spectest.Mode]spectest.Expectation {
		return spectest.ExpectAll(spectest.Expectation{Stdout: stdout, ErrCode: "ERUNTIME", ErrContains: msg})
	}
	runCases(t, []specCase{
		{name: "undefined_read", source: "print(nope);", expect: runtimeErr("", "undefined variable 'nope'")},
		{name: "undefined_assign", source: "nope = 1;", expect: runtimeErr("", "undefined variable 'nope'")},
		{name: "string_concat", source: `print("a" + "b");`, expect: runtimeErr("", "operands must be numbers, got string and string")},
		{name: "negate_non_number", source: `print(-"a");`, expect: runtimeErr("", "operand must be a number, got string")},
		{name: "arity", source: "fun f(a) {} f();", expect: runtimeErr("", "expected 1 arguments but got 0")},
		{name: "native_arity", source: "clock(1);", expect: runtimeErr("", "expected 0 arguments but got 1")},
		{name: "call_non_function", source: "var x = 1; x();", expect: runtimeErr("", "can only call functions")},
		{name: "frame_overflow", source: "fun r() { return r(); } r();", expect: runtimeErr("", "stack overflow")},
		{name: "field_on_number", source: "var x = 1; print(x.first);", expect: runtimeErr("", "only pairs have fields, got number")},
		{name: "output_before_error", source: "print(\"ok\");\nprint(nil < 1);", expect: runtimeErr("ok\n", "main.tp:2:")},
		{
			name:     "step_budget",
			source:   "var i = 0; while (true) { i = i + 1; }",
			maxSteps: 1000,
			expect:   runtimeErr("", "max instruction count exceeded (1000)"),
		},
	})
}

func TestSpecCompileErrors(t *testing.T) {
	compileErr := func(msg string) map[spectest.Mode]spectest.Expectation {
		return spectest.ExpectAll(spectest.Expectation{ErrCode: "ECOMPILE", ErrContains: msg})
	}
	runCases(t, []specCase{
		{name: "top_level_return", source: "return 1;", expect: compileErr("can't return from top-level code")},
		{name: "duplicate_local", source: "{ var a = 1; var a = 2; }", expect: compileErr("error TC0003: at 'a': already a variable named 'a' in this scope")},
		{name: "self_initializer", source: "{ var a = a; }", expect: compileErr("can't read local variable in its own initializer")},
		{name: "assignment_target", source: "1 = 2;", expect: compileErr("invalid assignment target")},
		{name: "unknown_field", source: "var p = pair(1, 2); p.third = 1;", expect: compileErr("unknown field 'third'")},
		{name: "unterminated_string", source: `print("open);`, expect: compileErr("error TC0002: unterminated string")},
		{name: "no_partial_run", source: "print(1);\nprint(;", expect: compileErr("main.tp:2:7")},
	})
}

func TestSpecPrograms(t *testing.T) {
	spectest.RunDir(t, "testdata")
}
