package engine

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// trackedReturn is a variable initialized from a contract function call whose
// result the caller is expected to check
type trackedReturn struct {
	name string
	site *CallSite
	decl *sitter.Node
}

// AnalyzeCheckedReturns finds contract-function results that are never
// checked for failure, or checked outside any try block's protected region.
// Only functions whose contract describes a failure through the return value
// are tracked; functions that signal failure by throwing belong to the
// generic postcondition pass. The violation is based on the function's first
// return-value postcondition.
func AnalyzeCheckedReturns(ctx *FileContext, root *sitter.Node) []Violation {
	var violations []Violation

	parser.WalkAST(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
			body := n.ChildByFieldName("body")
			if body == nil {
				return
			}
			violations = append(violations, analyzeReturnScope(ctx, body)...)
		}
	})

	return violations
}

func analyzeReturnScope(ctx *FileContext, scope *sitter.Node) []Violation {
	tracked := collectTrackedReturns(ctx, scope)
	if len(tracked) == 0 {
		return nil
	}

	var violations []Violation
	for _, t := range tracked {
		check := findFailureCheck(ctx, scope, t)
		if check != nil && enclosingTryBlock(check) != nil {
			continue
		}

		fc := ctx.Contracts[t.site.Package].Function(t.site.Function)
		if fc == nil {
			continue
		}
		post := returnPostcondition(fc)
		if post == nil {
			continue
		}
		pc := ctx.Contracts[t.site.Package]

		description := fmt.Sprintf("return value of %s.%s assigned to %q is never checked for failure",
			t.site.Package, t.site.Function, t.name)
		if check != nil {
			description = fmt.Sprintf("check of %q (result of %s.%s) is outside any try block",
				t.name, t.site.Package, t.site.Function)
		}

		violations = append(violations, Violation{
			ID:              fmt.Sprintf("%s-%s", t.site.Package, post.ID),
			Severity:        post.Severity,
			File:            t.site.File,
			Line:            t.site.Line,
			Column:          t.site.Column,
			Package:         t.site.Package,
			Function:        t.site.Function,
			PostconditionID: post.ID,
			Description:     description,
			SuggestedFix:    "Check the result inside a try block and handle the failure path",
			DocsURL:         pc.DocsURL,
		})
	}

	return violations
}

// returnPostcondition finds the first postcondition describing the call's
// return value on failure. Nil means the function signals failure some other
// way and is not this pass's business.
func returnPostcondition(fc *contract.FunctionContract) *contract.Postcondition {
	for i := range fc.Postconditions {
		if fc.Postconditions[i].Returns != "" {
			return &fc.Postconditions[i]
		}
	}
	return nil
}

// collectTrackedReturns records, in source order, every variable in the scope
// initialized by a recognized contract-function call whose contract declares
// a return-value postcondition. Nested function scopes are analyzed
// separately; reactive hooks are left to the hook pass.
func collectTrackedReturns(ctx *FileContext, scope *sitter.Node) []trackedReturn {
	var tracked []trackedReturn

	walkScope(scope, func(n *sitter.Node) {
		if n.Type() != "variable_declarator" {
			return
		}
		nameNode := n.ChildByFieldName("name")
		value := n.ChildByFieldName("value")
		if nameNode == nil || nameNode.Type() != "identifier" || value == nil {
			return
		}

		call := value
		if call.Type() == "await_expression" {
			for i := 0; i < int(call.ChildCount()); i++ {
				if child := call.Child(i); child.Type() == "call_expression" {
					call = child
					break
				}
			}
		}
		if call.Type() != "call_expression" {
			return
		}

		site, ok := ResolveCall(ctx, call)
		if !ok {
			return
		}
		if _, isHook := hookKinds[site.Function]; isHook {
			return
		}
		fc := ctx.Contracts[site.Package].Function(site.Function)
		if fc == nil || returnPostcondition(fc) == nil {
			return
		}

		tracked = append(tracked, trackedReturn{
			name: parser.NodeText(nameNode, ctx.Source),
			site: site,
			decl: n,
		})
	})

	return tracked
}

// findFailureCheck searches the rest of the scope after a tracked declaration
// for a recognized failure-check shape: if (!v), if (v), if (!v.prop),
// if (v.prop), or v || fallback.
func findFailureCheck(ctx *FileContext, scope *sitter.Node, t trackedReturn) *sitter.Node {
	var check *sitter.Node

	walkScope(scope, func(n *sitter.Node) {
		if check != nil || n.StartByte() <= t.decl.EndByte() {
			return
		}

		switch n.Type() {
		case "if_statement":
			if condition := n.ChildByFieldName("condition"); condition != nil &&
				conditionTestsVariable(ctx, condition, t.name) {
				check = n
			}
		case "binary_expression":
			if operator := n.ChildByFieldName("operator"); operator != nil && operator.Type() == "||" {
				if left := n.ChildByFieldName("left"); left != nil &&
					expressionRootsVariable(ctx, left, t.name) {
					check = n
				}
			}
		}
	})

	return check
}

// conditionTestsVariable reports whether an if condition tests the variable:
// bare, negated, or through a property access
func conditionTestsVariable(ctx *FileContext, condition *sitter.Node, name string) bool {
	// unwrap parenthesized_expression
	expr := condition
	for expr.Type() == "parenthesized_expression" && expr.NamedChildCount() > 0 {
		expr = expr.NamedChild(0)
	}

	if expr.Type() == "unary_expression" {
		if operand := expr.ChildByFieldName("argument"); operand != nil {
			expr = operand
		}
	}

	return expressionRootsVariable(ctx, expr, name)
}

// expressionRootsVariable reports whether an expression is the variable or a
// property access rooted at it
func expressionRootsVariable(ctx *FileContext, expr *sitter.Node, name string) bool {
	switch expr.Type() {
	case "identifier":
		return parser.NodeText(expr, ctx.Source) == name
	case "member_expression":
		if object := expr.ChildByFieldName("object"); object != nil && object.Type() == "identifier" {
			return parser.NodeText(object, ctx.Source) == name
		}
	}
	return false
}

// walkScope traverses a function body without descending into nested
// function scopes
func walkScope(scope *sitter.Node, visitor func(*sitter.Node)) {
	for i := 0; i < int(scope.ChildCount()); i++ {
		child := scope.Child(i)
		switch child.Type() {
		case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
			continue
		}
		visitor(child)
		walkScope(child, visitor)
	}
}
