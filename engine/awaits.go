package engine

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// CatchQuality classifies how useful a catch block actually is
type CatchQuality int

const (
	CatchSubstantive CatchQuality = iota
	CatchEmpty
	CatchConsoleOnly
	CatchUserFeedback
)

// userFeedbackMarkers are call-name fragments that indicate a catch block
// surfaces the failure to the user. Matched by substring.
var userFeedbackMarkers = []string{
	"toast", "notification", "notify", "alert", "snackbar", "seterror", "showerror", "message.error",
}

// AnalyzeAwaits walks every async function in a file and reports await
// expressions that no enclosing try block protects, plus try blocks whose
// catch silently swallows failures.
func AnalyzeAwaits(ctx *FileContext, root *sitter.Node) []Violation {
	var violations []Violation

	parser.WalkAST(root, func(n *sitter.Node) {
		if !isAsyncFunction(n) {
			return
		}
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		name := functionDisplayName(ctx, n)
		if name == "" {
			name = "(anonymous)"
		}
		walkAwaitRegion(ctx, body, name, false, &violations)
	})

	return violations
}

// walkAwaitRegion descends a function body tracking whether the current
// subtree is inside a try block's protected region. Catch and finally blocks
// are not protected by their own try statement. Nested functions are skipped;
// they get their own pass.
func walkAwaitRegion(ctx *FileContext, node *sitter.Node, fnName string, protected bool, violations *[]Violation) {
	switch node.Type() {
	case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
		return

	case "try_statement":
		if body := node.ChildByFieldName("body"); body != nil {
			walkAwaitRegion(ctx, body, fnName, true, violations)
		}
		if handler := node.ChildByFieldName("handler"); handler != nil {
			*violations = append(*violations, classifyCatchViolations(ctx, handler, fnName)...)
			walkAwaitRegion(ctx, handler, fnName, protected, violations)
		}
		if finalizer := node.ChildByFieldName("finalizer"); finalizer != nil {
			walkAwaitRegion(ctx, finalizer, fnName, protected, violations)
		}
		return

	case "await_expression":
		if !protected && !awaitHasPromiseCatch(ctx, node) {
			line, column := locate(node)
			*violations = append(*violations, Violation{
				ID:              "async-await-unguarded",
				Severity:        contract.SeverityWarning,
				File:            ctx.FilePath,
				Line:            line,
				Column:          column,
				Package:         "async",
				Function:        fnName,
				PostconditionID: "await-unguarded",
				Description:     fmt.Sprintf("await in %s is not inside a try block; a rejection propagates unhandled", fnName),
				SuggestedFix:    "Wrap the await in try/catch or chain a .catch handler",
			})
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkAwaitRegion(ctx, node.Child(i), fnName, protected, violations)
	}
}

// awaitHasPromiseCatch recognizes `await p().catch(...)`: the awaited
// expression already carries its own rejection handler
func awaitHasPromiseCatch(ctx *FileContext, await *sitter.Node) bool {
	found := false
	parser.WalkAST(await, func(n *sitter.Node) {
		if found || n.Type() != "call_expression" {
			return
		}
		callee := n.ChildByFieldName("function")
		if callee == nil || callee.Type() != "member_expression" {
			return
		}
		if property := callee.ChildByFieldName("property"); property != nil &&
			parser.NodeText(property, ctx.Source) == "catch" {
			found = true
		}
	})
	return found
}

// classifyCatchViolations reports catch blocks that swallow failures
func classifyCatchViolations(ctx *FileContext, handler *sitter.Node, fnName string) []Violation {
	body := handler.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	quality := ClassifyCatch(body, ctx.Source)
	line, column := locate(handler)

	switch quality {
	case CatchEmpty:
		return []Violation{{
			ID:              "async-catch-empty",
			Severity:        contract.SeverityWarning,
			File:            ctx.FilePath,
			Line:            line,
			Column:          column,
			Package:         "async",
			Function:        fnName,
			PostconditionID: "catch-empty",
			Description:     fmt.Sprintf("empty catch block in %s silently swallows failures", fnName),
			SuggestedFix:    "Rethrow, log with context, or surface the failure to the user",
		}}
	case CatchConsoleOnly:
		return []Violation{{
			ID:              "async-catch-console-only",
			Severity:        contract.SeverityInfo,
			File:            ctx.FilePath,
			Line:            line,
			Column:          column,
			Package:         "async",
			Function:        fnName,
			PostconditionID: "catch-console-only",
			Description:     fmt.Sprintf("catch block in %s only logs to the console; the user never sees the failure", fnName),
			SuggestedFix:    "Show user-facing feedback or rethrow after logging",
		}}
	}
	return nil
}

// ClassifyCatch judges a catch block's body: empty, console-only (no rethrow,
// no user-facing feedback), user-feedback, or substantive.
func ClassifyCatch(body *sitter.Node, source []byte) CatchQuality {
	if body.NamedChildCount() == 0 {
		return CatchEmpty
	}

	text := strings.ToLower(string(source[body.StartByte():body.EndByte()]))
	for _, marker := range userFeedbackMarkers {
		if strings.Contains(text, marker) {
			return CatchUserFeedback
		}
	}

	consoleOnly := true
	for i := 0; i < int(body.NamedChildCount()); i++ {
		statement := body.NamedChild(i)
		if statement.Type() == "comment" {
			continue
		}
		if !isConsoleStatement(statement, source) {
			consoleOnly = false
			break
		}
	}
	if consoleOnly {
		return CatchConsoleOnly
	}

	return CatchSubstantive
}

func isConsoleStatement(statement *sitter.Node, source []byte) bool {
	if statement.Type() != "expression_statement" {
		return false
	}
	text := strings.TrimSpace(string(source[statement.StartByte():statement.EndByte()]))
	return strings.HasPrefix(text, "console.")
}

// isAsyncFunction reports whether a node is an async function, method, or
// arrow function
func isAsyncFunction(node *sitter.Node) bool {
	switch node.Type() {
	case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
	default:
		return false
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "async" {
			return true
		}
		// stop at the parameter list; "async" always precedes it
		if child.Type() == "formal_parameters" {
			break
		}
	}
	return false
}
