package engine

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/parser"
)

// resolvedCallee is the unwound form of a call expression's callee: the root
// identifier, the property chain between root and method, and the method name.
//
//	axios.get(x)              -> root "axios",  chain [],       method "get"
//	prisma.user.create(x)     -> root "prisma", chain ["user"], method "create"
//	client.from('x').select() -> root "client", chain ["from"], method "select"
type resolvedCallee struct {
	Root   string
	Chain  []string
	Method string
}

// unwindCallee walks a member-access callee down to its root identifier,
// stripping trailing .member segments into the chain and passing through
// intermediate calls (builder pattern). Returns false when the expression
// never bottoms out at a bare identifier; such callees are not analyzed.
func unwindCallee(callee *sitter.Node, source []byte) (resolvedCallee, bool) {
	if callee.Type() == "identifier" {
		return resolvedCallee{Method: parser.NodeText(callee, source)}, true
	}
	if callee.Type() != "member_expression" {
		return resolvedCallee{}, false
	}

	property := callee.ChildByFieldName("property")
	if property == nil {
		return resolvedCallee{}, false
	}
	method := parser.NodeText(property, source)

	var chain []string
	node := callee.ChildByFieldName("object")

	for node != nil {
		switch node.Type() {
		case "identifier":
			root := parser.NodeText(node, source)
			// this.client.users.create() -> drop "this", promote "client"
			if root == "this" && len(chain) > 0 {
				root = chain[0]
				chain = chain[1:]
			}
			return resolvedCallee{Root: root, Chain: chain, Method: method}, true

		case "this":
			if len(chain) == 0 {
				return resolvedCallee{}, false
			}
			root := chain[0]
			return resolvedCallee{Root: root, Chain: chain[1:], Method: method}, true

		case "member_expression":
			prop := node.ChildByFieldName("property")
			if prop == nil {
				return resolvedCallee{}, false
			}
			chain = append([]string{parser.NodeText(prop, source)}, chain...)
			node = node.ChildByFieldName("object")

		case "call_expression":
			// Builder chain: keep unwinding through the intermediate call
			node = node.ChildByFieldName("function")

		default:
			// Complex expressions (computed access, parenthesized, etc.) are
			// not analyzed; a miss, not an error.
			return resolvedCallee{}, false
		}
	}

	return resolvedCallee{}, false
}

// resolveRootPackage maps a root identifier to a package: direct match
// against a known package identity first, then the file's instance bindings,
// then the import table. First match wins. Namespace aliases never resolve;
// calls through them would need per-member tracking the engine does not do.
func resolveRootPackage(ctx *FileContext, root string) (string, bool) {
	if ctx.Imports.IsNamespace(root) {
		return "", false
	}
	if _, ok := ctx.Contracts[root]; ok {
		return root, true
	}
	if pkg, ok := ctx.Bindings[root]; ok {
		return pkg, true
	}
	if pkg, ok := ctx.Imports.Resolve(root); ok {
		return pkg, true
	}
	return "", false
}

// ResolveCall turns a call expression into a CallSite, or reports no match.
// A CallSite is only produced when the resolved package has a contract and
// that contract declares the resolved function name.
func ResolveCall(ctx *FileContext, call *sitter.Node) (*CallSite, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return nil, false
	}

	resolved, ok := unwindCallee(callee, ctx.Source)
	if !ok {
		return nil, false
	}

	var pkg string
	if resolved.Root == "" {
		// Simple-name call: resolve the function name through the import table
		pkg, ok = ctx.Imports.Resolve(resolved.Method)
		if !ok {
			return nil, false
		}
	} else {
		pkg, ok = resolveRootPackage(ctx, resolved.Root)
		if !ok {
			return nil, false
		}
	}

	pc, ok := ctx.Contracts[pkg]
	if !ok {
		return nil, false
	}
	if pc.Function(resolved.Method) == nil {
		return nil, false
	}

	line, column := locate(call)
	return &CallSite{
		File:     ctx.FilePath,
		Line:     line,
		Column:   column,
		Function: resolved.Method,
		Package:  pkg,
	}, true
}

// rootInstanceVar returns the instance variable a call was made on, when the
// callee is rooted at one. Used to credit interceptor registrations.
func rootInstanceVar(ctx *FileContext, call *sitter.Node) string {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return ""
	}
	if resolved, ok := unwindCallee(callee, ctx.Source); ok {
		return resolved.Root
	}
	return ""
}
