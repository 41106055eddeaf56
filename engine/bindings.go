package engine

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/parser"
)

// interceptorMarkers are the call-chain fragments that indicate a global
// error handler was registered on an instance (axios-style interceptors).
// Matched by literal substring over the callee text.
var interceptorMarkers = []string{
	".interceptors.response.use",
	".interceptors.request.use",
}

// CollectBindings runs the first pass over a file, populating the instance
// binding table and the interceptor registry on the context. Bindings are
// recorded in traversal order and the last write for a name wins; a variable
// rebound to a different package later in the file shadows the earlier
// binding for the whole analysis. Documented limitation, kept for fidelity
// with observed behavior.
func CollectBindings(ctx *FileContext, root *sitter.Node) {
	parser.WalkAST(root, func(n *sitter.Node) {
		switch n.Type() {
		case "variable_declarator":
			collectDeclaratorBinding(ctx, n)
		case "assignment_expression":
			collectAssignmentBinding(ctx, n)
		case "public_field_definition", "field_definition":
			collectFieldBinding(ctx, n)
		case "required_parameter":
			collectParameterBinding(ctx, n)
		case "call_expression":
			collectInterceptorRegistration(ctx, n)
		}
	})
}

func collectDeclaratorBinding(ctx *FileContext, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Type() != "identifier" {
		return
	}
	name := parser.NodeText(nameNode, ctx.Source)

	// const client: PrismaClient = ... (declared-type form)
	if typeName := annotatedTypeName(ctx, node); typeName != "" {
		if pkg, ok := ctx.typeToPackage[typeName]; ok {
			ctx.Bindings[name] = pkg
			return
		}
	}

	value := node.ChildByFieldName("value")
	if value == nil {
		return
	}
	if pkg, ok := packageForInstanceValue(ctx, value); ok {
		ctx.Bindings[name] = pkg
	}
}

func collectAssignmentBinding(ctx *FileContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}

	name := bindingNameForTarget(ctx, left)
	if name == "" {
		return
	}

	if pkg, ok := packageForInstanceValue(ctx, right); ok {
		ctx.Bindings[name] = pkg
	}
}

// collectFieldBinding handles class property declarations: typed
// (private client: PrismaClient) and initialized (client = new PrismaClient()).
func collectFieldBinding(ctx *FileContext, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, ctx.Source)

	if typeName := annotatedTypeName(ctx, node); typeName != "" {
		if pkg, ok := ctx.typeToPackage[typeName]; ok {
			ctx.Bindings[name] = pkg
			return
		}
	}

	if value := node.ChildByFieldName("value"); value != nil {
		if pkg, ok := packageForInstanceValue(ctx, value); ok {
			ctx.Bindings[name] = pkg
		}
	}
}

// collectParameterBinding handles TypeScript constructor-parameter shorthand
// properties: constructor(private prisma: PrismaService) {}
func collectParameterBinding(ctx *FileContext, node *sitter.Node) {
	hasModifier := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "accessibility_modifier" {
			hasModifier = true
			break
		}
	}
	if !hasModifier {
		return
	}

	pattern := node.ChildByFieldName("pattern")
	if pattern == nil || pattern.Type() != "identifier" {
		return
	}

	typeName := annotatedTypeName(ctx, node)
	if typeName == "" {
		return
	}

	if pkg, ok := ctx.typeToPackage[typeName]; ok {
		ctx.Bindings[parser.NodeText(pattern, ctx.Source)] = pkg
	}
}

func collectInterceptorRegistration(ctx *FileContext, node *sitter.Node) {
	callee := node.ChildByFieldName("function")
	if callee == nil {
		return
	}

	text := parser.NodeText(callee, ctx.Source)
	matched := false
	for _, marker := range interceptorMarkers {
		if strings.Contains(text, marker) {
			matched = true
			break
		}
	}
	if !matched {
		return
	}

	if resolved, ok := unwindCallee(callee, ctx.Source); ok && resolved.Root != "" {
		ctx.Interceptors[resolved.Root] = true
	}
}

// packageForInstanceValue decides whether a declarator/assignment value
// constructs an instance of a contract package, and which one.
func packageForInstanceValue(ctx *FileContext, value *sitter.Node) (string, bool) {
	switch value.Type() {
	case "new_expression":
		return packageForConstructor(ctx, value)
	case "call_expression":
		return packageForFactoryCall(ctx, value)
	case "await_expression":
		// const db = await createConnection(...)
		for i := 0; i < int(value.ChildCount()); i++ {
			child := value.Child(i)
			if child.Type() == "call_expression" || child.Type() == "new_expression" {
				return packageForInstanceValue(ctx, child)
			}
		}
	}
	return "", false
}

// packageForConstructor resolves `new ClassName(...)` through the class
// registry, falling back to the import table for classes the registry does
// not know.
func packageForConstructor(ctx *FileContext, node *sitter.Node) (string, bool) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil || ctor.Type() != "identifier" {
		return "", false
	}
	className := parser.NodeText(ctor, ctx.Source)

	if pkg, ok := ctx.classToPackage[className]; ok {
		return pkg, true
	}

	if pkg, ok := ctx.Imports.Resolve(className); ok {
		if _, known := ctx.Contracts[pkg]; known {
			return pkg, true
		}
	}

	return "", false
}

// packageForFactoryCall recognizes factory-style instance creation:
// pkg.create(...), axios.create(...), free createClient(...) calls, and the
// contract-registered factory method names.
func packageForFactoryCall(ctx *FileContext, node *sitter.Node) (string, bool) {
	callee := node.ChildByFieldName("function")
	if callee == nil {
		return "", false
	}

	switch callee.Type() {
	case "identifier":
		name := parser.NodeText(callee, ctx.Source)
		if !strings.HasPrefix(name, "create") {
			if _, registered := ctx.factoryMethods[name]; !registered {
				return "", false
			}
		}
		if pkg, ok := ctx.Imports.Resolve(name); ok {
			if _, known := ctx.Contracts[pkg]; known {
				return pkg, true
			}
		}
		if pkg, ok := ctx.factoryMethods[name]; ok {
			return pkg, true
		}

	case "member_expression":
		resolved, ok := unwindCallee(callee, ctx.Source)
		if !ok {
			return "", false
		}
		if !isFactoryMethodName(ctx, resolved.Method) {
			return "", false
		}
		if pkg, ok := resolveRootPackage(ctx, resolved.Root); ok {
			return pkg, true
		}
	}

	return "", false
}

func isFactoryMethodName(ctx *FileContext, name string) bool {
	if name == "create" || name == "default" {
		return true
	}
	_, registered := ctx.factoryMethods[name]
	return registered
}

// bindingNameForTarget extracts the name to bind for an assignment target:
// plain identifiers bind directly, `this.client` and `obj.client` bind the
// property name so later `this.client.get()` chains resolve.
func bindingNameForTarget(ctx *FileContext, target *sitter.Node) string {
	switch target.Type() {
	case "identifier":
		return parser.NodeText(target, ctx.Source)
	case "member_expression":
		if property := target.ChildByFieldName("property"); property != nil {
			return parser.NodeText(property, ctx.Source)
		}
	}
	return ""
}

// annotatedTypeName extracts the declared type name from a node's type
// annotation, unwrapping generics (Repository<User> -> Repository).
func annotatedTypeName(ctx *FileContext, node *sitter.Node) string {
	var annotation *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "type_annotation" {
			annotation = node.Child(i)
			break
		}
	}
	if annotation == nil {
		return ""
	}

	var typeName string
	parser.WalkAST(annotation, func(n *sitter.Node) {
		if typeName != "" {
			return
		}
		switch n.Type() {
		case "type_identifier":
			typeName = parser.NodeText(n, ctx.Source)
		}
	})
	return typeName
}
