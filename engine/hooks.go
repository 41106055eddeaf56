package engine

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// hookKinds is the fixed set of reactive data-fetching hooks the analyzer
// recognizes, mapped to their kind.
var hookKinds = map[string]string{
	"useQuery":         "query",
	"useInfiniteQuery": "query",
	"useSuspenseQuery": "query",
	"useQueries":       "query",
	"useMutation":      "mutation",
}

// destructuredRoles maps destructured hook-return names to semantic roles
var destructuredRoles = map[string]string{
	"error":          "error",
	"isError":        "isError",
	"isLoadingError": "isError",
	"failureReason":  "error",
	"data":           "data",
	"status":         "status",
	"mutate":         "mutate",
	"mutateAsync":    "mutate",
}

// HookCall captures one reactive hook call site and everything the violation
// decision needs to know about it
type HookCall struct {
	Kind         string
	Name         string
	Node         *sitter.Node
	Line         int
	Column       int
	HasOnError   bool
	HasOnMutate  bool
	HasOnSuccess bool
	Retry        string            // "absent", "number", "boolean", "function", "unknown"
	Roles        map[string]string // destructured local name -> semantic role
	ResultVar    string            // set when the result was bound whole: const q = useQuery(...)
	Package      string
	Contract     *contract.FunctionContract
}

// hookAnalyzer holds per-file state for the reactive-hook pass
type hookAnalyzer struct {
	ctx *FileContext

	// global handlers credited to all hooks of the matching kind, from a
	// shared client constructed with query/mutation error callbacks
	globalQueryHandler    bool
	globalMutationHandler bool
}

// AnalyzeHooks runs the reactive-hook error-handling pass over a file
func AnalyzeHooks(ctx *FileContext, root *sitter.Node) []Violation {
	a := &hookAnalyzer{ctx: ctx}
	a.scanGlobalHandlers(root)

	var violations []Violation
	parser.WalkAST(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		hook, ok := a.parseHookCall(n)
		if !ok {
			return
		}
		violations = append(violations, a.evaluateHook(root, hook)...)
	})

	return violations
}

// scanGlobalHandlers looks for construction of a shared client object whose
// configuration registers query-level or mutation-level error callbacks:
//
//	new QueryClient({ defaultOptions: { queries: { onError: ... } } })
func (a *hookAnalyzer) scanGlobalHandlers(root *sitter.Node) {
	parser.WalkAST(root, func(n *sitter.Node) {
		if n.Type() != "new_expression" {
			return
		}
		ctor := n.ChildByFieldName("constructor")
		if ctor == nil || !strings.Contains(parser.NodeText(ctor, a.ctx.Source), "QueryClient") {
			return
		}
		args := n.ChildByFieldName("arguments")
		if args == nil {
			return
		}

		parser.WalkAST(args, func(pair *sitter.Node) {
			if pair.Type() != "pair" {
				return
			}
			key := pair.ChildByFieldName("key")
			value := pair.ChildByFieldName("value")
			if key == nil || value == nil {
				return
			}
			switch parser.NodeText(key, a.ctx.Source) {
			case "queries":
				if objectHasKey(value, a.ctx.Source, "onError") {
					a.globalQueryHandler = true
				}
			case "mutations":
				if objectHasKey(value, a.ctx.Source, "onError") {
					a.globalMutationHandler = true
				}
			}
		})
	})
}

// parseHookCall recognizes a call to one of the known hooks and extracts its
// option flags and destructured return bindings
func (a *hookAnalyzer) parseHookCall(call *sitter.Node) (*HookCall, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil || callee.Type() != "identifier" {
		return nil, false
	}
	name := parser.NodeText(callee, a.ctx.Source)
	kind, isHook := hookKinds[name]
	if !isHook {
		return nil, false
	}

	pkg, ok := a.ctx.Imports.Resolve(name)
	if !ok {
		return nil, false
	}
	pc, ok := a.ctx.Contracts[pkg]
	if !ok {
		return nil, false
	}
	fc := pc.Function(name)
	if fc == nil {
		return nil, false
	}

	line, column := locate(call)
	hook := &HookCall{
		Kind:     kind,
		Name:     name,
		Node:     call,
		Line:     line,
		Column:   column,
		Retry:    "absent",
		Roles:    make(map[string]string),
		Package:  pkg,
		Contract: fc,
	}

	if args := call.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			if arg := args.NamedChild(i); arg.Type() == "object" {
				a.parseHookOptions(arg, hook)
				break
			}
		}
	}

	a.parseHookResult(call, hook)
	return hook, true
}

func (a *hookAnalyzer) parseHookOptions(options *sitter.Node, hook *HookCall) {
	for i := 0; i < int(options.NamedChildCount()); i++ {
		entry := options.NamedChild(i)

		var key string
		var value *sitter.Node
		switch entry.Type() {
		case "pair":
			if k := entry.ChildByFieldName("key"); k != nil {
				key = parser.NodeText(k, a.ctx.Source)
			}
			value = entry.ChildByFieldName("value")
		case "shorthand_property_identifier":
			key = parser.NodeText(entry, a.ctx.Source)
		case "method_definition":
			if k := entry.ChildByFieldName("name"); k != nil {
				key = parser.NodeText(k, a.ctx.Source)
			}
		}

		switch key {
		case "onError":
			hook.HasOnError = true
		case "onMutate":
			hook.HasOnMutate = true
		case "onSuccess":
			hook.HasOnSuccess = true
		case "retry":
			hook.Retry = classifyRetryValue(value)
		}
	}
}

func classifyRetryValue(value *sitter.Node) string {
	if value == nil {
		return "unknown"
	}
	switch value.Type() {
	case "number":
		return "number"
	case "true", "false":
		return "boolean"
	case "arrow_function", "function_expression", "function", "function_declaration":
		return "function"
	}
	return "unknown"
}

// parseHookResult records how the hook's return value was bound: destructured
// into role-tagged locals, or whole into a result variable
func (a *hookAnalyzer) parseHookResult(call *sitter.Node, hook *HookCall) {
	parent := call.Parent()
	if parent == nil || parent.Type() != "variable_declarator" {
		return
	}
	nameNode := parent.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	switch nameNode.Type() {
	case "identifier":
		hook.ResultVar = parser.NodeText(nameNode, a.ctx.Source)

	case "object_pattern":
		for i := 0; i < int(nameNode.NamedChildCount()); i++ {
			entry := nameNode.NamedChild(i)
			switch entry.Type() {
			case "shorthand_property_identifier_pattern":
				name := parser.NodeText(entry, a.ctx.Source)
				if role, ok := destructuredRoles[name]; ok {
					hook.Roles[name] = role
				}
			case "pair_pattern":
				key := entry.ChildByFieldName("key")
				value := entry.ChildByFieldName("value")
				if key == nil || value == nil || value.Type() != "identifier" {
					continue
				}
				if role, ok := destructuredRoles[parser.NodeText(key, a.ctx.Source)]; ok {
					hook.Roles[parser.NodeText(value, a.ctx.Source)] = role
				}
			}
		}
	}
}

// evaluateHook decides violations for one hook call against its contract's
// postconditions
func (a *hookAnalyzer) evaluateHook(root *sitter.Node, hook *HookCall) []Violation {
	errorChecked := a.errorStateChecked(hook)

	globalHandler := false
	switch hook.Kind {
	case "query":
		globalHandler = a.globalQueryHandler
	case "mutation":
		globalHandler = a.globalMutationHandler
	}

	deferredHandled := false
	if hook.Kind == "mutation" {
		deferredHandled = a.mutateHandledDeferred(root, hook)
	}

	var violations []Violation
	pc := a.ctx.Contracts[hook.Package]

	for _, post := range hook.Contract.Postconditions {
		id := strings.ToLower(post.ID)
		switch {
		case strings.Contains(id, "unhandled"):
			if errorChecked || hook.HasOnError || globalHandler || deferredHandled {
				continue
			}
			violations = append(violations, Violation{
				ID:              fmt.Sprintf("%s-%s", hook.Package, post.ID),
				Severity:        post.Severity,
				File:            a.ctx.FilePath,
				Line:            hook.Line,
				Column:          hook.Column,
				Package:         hook.Package,
				Function:        hook.Name,
				PostconditionID: post.ID,
				Description:     fmt.Sprintf("%s result can fail but no error handling was found: %s", hook.Name, post.Condition),
				SuggestedFix:    "Check the returned error/isError state, pass an onError callback, or configure a global error handler",
				DocsURL:         pc.DocsURL,
			})

		case strings.Contains(id, "optimistic"):
			if !hook.HasOnMutate || hook.HasOnError {
				continue
			}
			violations = append(violations, Violation{
				ID:              fmt.Sprintf("%s-%s", hook.Package, post.ID),
				Severity:        post.Severity,
				File:            a.ctx.FilePath,
				Line:            hook.Line,
				Column:          hook.Column,
				Package:         hook.Package,
				Function:        hook.Name,
				PostconditionID: post.ID,
				Description:     fmt.Sprintf("%s registers an optimistic update (onMutate) without a rollback (onError)", hook.Name),
				SuggestedFix:    "Add an onError callback that restores the snapshot captured in onMutate",
				DocsURL:         pc.DocsURL,
			})
		}
	}

	return violations
}

// errorStateChecked counts uses of error-role bindings inside conditionals,
// ternaries, JSX conditional rendering, and short-circuit logic within the
// nearest enclosing component
func (a *hookAnalyzer) errorStateChecked(hook *HookCall) bool {
	names := make(map[string]bool)
	for local, role := range hook.Roles {
		if role == "error" || role == "isError" {
			names[local] = true
		}
	}

	component := enclosingComponent(a.ctx, hook.Node)
	if component == nil {
		return false
	}

	checked := false
	parser.WalkAST(component, func(n *sitter.Node) {
		if checked {
			return
		}
		switch n.Type() {
		case "identifier":
			if names[parser.NodeText(n, a.ctx.Source)] && inConditionalContext(component, n) {
				checked = true
			}
		case "member_expression":
			// q.error / q.isError when the result was bound whole
			if hook.ResultVar == "" {
				return
			}
			object := n.ChildByFieldName("object")
			property := n.ChildByFieldName("property")
			if object == nil || property == nil || object.Type() != "identifier" {
				return
			}
			if parser.NodeText(object, a.ctx.Source) != hook.ResultVar {
				return
			}
			prop := parser.NodeText(property, a.ctx.Source)
			if (prop == "error" || prop == "isError") && inConditionalContext(component, n) {
				checked = true
			}
		}
	})

	return checked
}

// inConditionalContext reports whether a node participates in a conditional,
// ternary, JSX expression, or short-circuit logical expression
func inConditionalContext(bound, node *sitter.Node) bool {
	for cur := node.Parent(); cur != nil && !sameNode(cur, bound); cur = cur.Parent() {
		switch cur.Type() {
		case "if_statement", "while_statement":
			if condition := cur.ChildByFieldName("condition"); condition != nil && containsNode(condition, node) {
				return true
			}
		case "ternary_expression":
			if condition := cur.ChildByFieldName("condition"); condition != nil && containsNode(condition, node) {
				return true
			}
		case "jsx_expression":
			return true
		case "binary_expression":
			if operator := cur.ChildByFieldName("operator"); operator != nil {
				// operator node text needs no source: it is an anonymous token,
				// so match on the node type string
				op := operator.Type()
				if op == "&&" || op == "||" || op == "??" {
					return true
				}
			}
		}
	}
	return false
}

// mutateHandledDeferred credits a mutation hook whose mutate function is
// invoked elsewhere with an awaited call inside a try/catch
func (a *hookAnalyzer) mutateHandledDeferred(root *sitter.Node, hook *HookCall) bool {
	mutateNames := make(map[string]bool)
	for local, role := range hook.Roles {
		if role == "mutate" {
			mutateNames[local] = true
		}
	}

	handled := false
	parser.WalkAST(root, func(n *sitter.Node) {
		if handled || n.Type() != "call_expression" {
			return
		}
		callee := n.ChildByFieldName("function")
		if callee == nil {
			return
		}

		invoked := false
		switch callee.Type() {
		case "identifier":
			invoked = mutateNames[parser.NodeText(callee, a.ctx.Source)]
		case "member_expression":
			object := callee.ChildByFieldName("object")
			property := callee.ChildByFieldName("property")
			if object != nil && property != nil && object.Type() == "identifier" {
				prop := parser.NodeText(property, a.ctx.Source)
				obj := parser.NodeText(object, a.ctx.Source)
				invoked = (prop == "mutate" || prop == "mutateAsync") &&
					(obj == hook.ResultVar || mutateNames[obj])
			}
		}
		if !invoked {
			return
		}

		if parent := n.Parent(); parent != nil && parent.Type() == "await_expression" {
			if enclosingTryBlock(parent) != nil {
				handled = true
			}
		}
	})

	return handled
}

// enclosingComponent finds the nearest enclosing function that looks like a
// component: PascalCase name or a body containing JSX markup. Falls back to
// the outermost enclosing function when nothing matches the heuristic.
func enclosingComponent(ctx *FileContext, node *sitter.Node) *sitter.Node {
	var outermost *sitter.Node

	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Type() {
		case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
			outermost = cur
			if name := functionDisplayName(ctx, cur); isPascalCase(name) {
				return cur
			}
			if body := cur.ChildByFieldName("body"); body != nil &&
				strings.Contains(parser.NodeText(body, ctx.Source), "<") {
				return cur
			}
		}
	}

	return outermost
}

// functionDisplayName finds a human-readable name for a function node,
// looking at the declaration name or the variable it was assigned to
func functionDisplayName(ctx *FileContext, fn *sitter.Node) string {
	if name := fn.ChildByFieldName("name"); name != nil {
		return parser.NodeText(name, ctx.Source)
	}
	if parent := fn.Parent(); parent != nil && parent.Type() == "variable_declarator" {
		if name := parent.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			return parser.NodeText(name, ctx.Source)
		}
	}
	return ""
}

func isPascalCase(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// objectHasKey reports whether an object expression subtree declares a
// property with the given name
func objectHasKey(node *sitter.Node, source []byte, key string) bool {
	found := false
	parser.WalkAST(node, func(n *sitter.Node) {
		if found {
			return
		}
		switch n.Type() {
		case "pair":
			if k := n.ChildByFieldName("key"); k != nil && parser.NodeText(k, source) == key {
				found = true
			}
		case "shorthand_property_identifier":
			if parser.NodeText(n, source) == key {
				found = true
			}
		case "method_definition":
			if k := n.ChildByFieldName("name"); k != nil && parser.NodeText(k, source) == key {
				found = true
			}
		}
	})
	return found
}
