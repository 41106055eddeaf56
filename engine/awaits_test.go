package engine

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/parser"
)

func analyzeAwaits(t *testing.T, source string) []Violation {
	t.Helper()
	ctx, root := newTestContext(t, "awaits.js", source)
	return AnalyzeAwaits(ctx, root)
}

func TestAnalyzeAwaits_BareAwait(t *testing.T) {
	source := `async function load() {
  const res = await fetch('/users');
  return res.json();
}`
	violations := analyzeAwaits(t, source)

	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	v := violations[0]
	if v.ID != "async-await-unguarded" || v.Severity != "warning" {
		t.Errorf("unexpected violation %+v", v)
	}
	if v.Function != "load" || v.Line != 2 {
		t.Errorf("expected location in load at line 2, got %s line %d", v.Function, v.Line)
	}
}

func TestAnalyzeAwaits_TryProtects(t *testing.T) {
	source := `async function load() {
  try {
    const res = await fetch('/users');
    return await res.json();
  } catch (err) {
    showError(err);
    return null;
  }
}`
	if violations := analyzeAwaits(t, source); len(violations) != 0 {
		t.Errorf("awaits inside try are guarded, got %+v", violations)
	}
}

func TestAnalyzeAwaits_CatchBlockNotProtected(t *testing.T) {
	source := `async function load() {
  try {
    return await fetch('/users');
  } catch (err) {
    return await fetch('/fallback');
  }
}`
	violations := analyzeAwaits(t, source)

	if len(violations) != 1 {
		t.Fatalf("the await inside the catch block is unguarded, got %+v", violations)
	}
	if violations[0].Line != 5 {
		t.Errorf("expected the fallback await on line 5, got line %d", violations[0].Line)
	}
}

func TestAnalyzeAwaits_InlinePromiseCatch(t *testing.T) {
	source := `async function load() {
  const res = await fetch('/users').catch(() => null);
  return res;
}`
	if violations := analyzeAwaits(t, source); len(violations) != 0 {
		t.Errorf("a chained .catch guards the await, got %+v", violations)
	}
}

func TestAnalyzeAwaits_NestedFunctionGetsOwnScope(t *testing.T) {
	source := `async function outer() {
  try {
    const handler = async () => {
      await save();
    };
    await handler();
  } catch (err) {
    report(err);
  }
}`
	violations := analyzeAwaits(t, source)

	if len(violations) != 1 {
		t.Fatalf("the nested arrow's await is not covered by the outer try, got %+v", violations)
	}
	if violations[0].Function != "handler" {
		t.Errorf("expected the violation attributed to handler, got %q", violations[0].Function)
	}
}

func TestAnalyzeAwaits_SyncFunctionIgnored(t *testing.T) {
	source := `function compute(x) {
  return x * 2;
}`
	if violations := analyzeAwaits(t, source); len(violations) != 0 {
		t.Errorf("sync functions have no awaits to flag, got %+v", violations)
	}
}

func TestAnalyzeAwaits_EmptyCatch(t *testing.T) {
	source := `async function load() {
  try {
    return await fetch('/users');
  } catch (err) {}
}`
	violations := analyzeAwaits(t, source)

	if len(violations) != 1 {
		t.Fatalf("expected the empty-catch violation, got %+v", violations)
	}
	v := violations[0]
	if v.ID != "async-catch-empty" || v.Severity != "warning" {
		t.Errorf("unexpected violation %+v", v)
	}
}

func TestAnalyzeAwaits_ConsoleOnlyCatch(t *testing.T) {
	source := `async function load() {
  try {
    return await fetch('/users');
  } catch (err) {
    console.error('load failed', err);
  }
}`
	violations := analyzeAwaits(t, source)

	if len(violations) != 1 {
		t.Fatalf("expected the console-only violation, got %+v", violations)
	}
	v := violations[0]
	if v.ID != "async-catch-console-only" || v.Severity != "info" {
		t.Errorf("unexpected violation %+v", v)
	}
}

func TestClassifyCatch(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   CatchQuality
	}{
		{"empty", `async function f() { try { await g(); } catch (e) {} }`, CatchEmpty},
		{"console only", `async function f() { try { await g(); } catch (e) { console.warn(e); } }`, CatchConsoleOnly},
		{"user feedback", `async function f() { try { await g(); } catch (e) { toast.error(e.message); } }`, CatchUserFeedback},
		{"substantive", `async function f() { try { await g(); } catch (e) { throw mapError(e); } }`, CatchSubstantive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseSource(t, "catch.js", tc.source)
			root := result.Tree.RootNode()

			var handler *sitter.Node
			parser.WalkAST(root, func(n *sitter.Node) {
				if handler == nil && n.Type() == "catch_clause" {
					handler = n
				}
			})
			if handler == nil {
				t.Fatal("no catch clause parsed")
			}
			body := handler.ChildByFieldName("body")
			if body == nil {
				t.Fatal("catch clause has no body")
			}
			if got := ClassifyCatch(body, result.Source); got != tc.want {
				t.Errorf("ClassifyCatch = %v, want %v", got, tc.want)
			}
		})
	}
}
