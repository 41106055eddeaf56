package engine

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// listenerMethods are the registration calls that attach an event handler
var listenerMethods = map[string]bool{
	"on":               true,
	"addEventListener": true,
	"once":             true,
}

// TrackedEventInstance follows one created instance whose contract requires
// event listeners
type TrackedEventInstance struct {
	Variable string
	Package  string
	Origin   string // class or factory name the instance came from
	Line     int
	Column   int
	Required []contract.RequiredListener
	Attached map[string]bool
}

// AnalyzeListeners tracks instances created from classes or factories with a
// non-empty required-listener list, records which events got handlers
// attached, and reports one violation per missing required event.
//
// moduleLevelOnly restricts both passes to top-level code, not descending
// into function bodies; used to separately validate module-scope instances.
func AnalyzeListeners(ctx *FileContext, root *sitter.Node, moduleLevelOnly bool) []Violation {
	walk := func(visitor func(*sitter.Node)) {
		if moduleLevelOnly {
			parser.WalkShallow(root, func(n *sitter.Node) bool {
				switch n.Type() {
				case "function_declaration", "function_expression", "arrow_function", "method_definition", "function":
					return false
				}
				visitor(n)
				return true
			})
		} else {
			parser.WalkAST(root, visitor)
		}
	}

	// Pass 1: tracked instances, in creation order
	var instances []*TrackedEventInstance
	byName := make(map[string]*TrackedEventInstance)

	walk(func(n *sitter.Node) {
		var nameNode, value *sitter.Node
		switch n.Type() {
		case "variable_declarator":
			nameNode = n.ChildByFieldName("name")
			value = n.ChildByFieldName("value")
		case "assignment_expression":
			nameNode = n.ChildByFieldName("left")
			value = n.ChildByFieldName("right")
		default:
			return
		}
		if nameNode == nil || value == nil {
			return
		}

		varName := bindingNameForTarget(ctx, nameNode)
		if varName == "" {
			return
		}

		instance := trackEventInstance(ctx, varName, value)
		if instance == nil {
			return
		}
		// rebinding a name restarts its listener tracking
		if prev, ok := byName[varName]; ok {
			*prev = *instance
			return
		}
		instances = append(instances, instance)
		byName[varName] = instance
	})

	if len(instances) == 0 {
		return nil
	}

	// Pass 2: attached listeners
	walk(func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		callee := n.ChildByFieldName("function")
		if callee == nil || callee.Type() != "member_expression" {
			return
		}
		property := callee.ChildByFieldName("property")
		if property == nil || !listenerMethods[parser.NodeText(property, ctx.Source)] {
			return
		}

		object := callee.ChildByFieldName("object")
		if object == nil {
			return
		}
		varName := bindingNameForTarget(ctx, object)
		instance, ok := byName[varName]
		if !ok {
			return
		}

		args := n.ChildByFieldName("arguments")
		if args == nil {
			return
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			if arg := args.NamedChild(i); arg.Type() == "string" {
				instance.Attached[parser.ExtractStringValue(arg, ctx.Source)] = true
				break
			}
		}
	})

	// Pass 3: one violation per missing required event, in contract order
	var violations []Violation
	for _, instance := range instances {
		pc := ctx.Contracts[instance.Package]
		for _, required := range instance.Required {
			if instance.Attached[required.Event] {
				continue
			}
			violations = append(violations, Violation{
				ID:              fmt.Sprintf("%s-missing-%s-listener", instance.Package, required.Event),
				Severity:        required.Severity,
				File:            ctx.FilePath,
				Line:            instance.Line,
				Column:          instance.Column,
				Package:         instance.Package,
				Function:        instance.Origin,
				PostconditionID: fmt.Sprintf("missing-%s-listener", required.Event),
				Description: fmt.Sprintf("%s instance %q never registers a listener for the required %q event",
					instance.Origin, instance.Variable, required.Event),
				SuggestedFix: fmt.Sprintf("Attach a handler: %s.on('%s', handler)", instance.Variable, required.Event),
				DocsURL:      pc.DocsURL,
			})
		}
	}

	return violations
}

// trackEventInstance decides whether a declarator/assignment value creates an
// instance whose contract requires listeners
func trackEventInstance(ctx *FileContext, varName string, value *sitter.Node) *TrackedEventInstance {
	if value.Type() == "await_expression" {
		for i := 0; i < int(value.ChildCount()); i++ {
			child := value.Child(i)
			if child.Type() == "new_expression" || child.Type() == "call_expression" {
				value = child
				break
			}
		}
	}

	var pkg, origin string
	switch value.Type() {
	case "new_expression":
		resolved, ok := packageForConstructor(ctx, value)
		if !ok {
			return nil
		}
		pkg = resolved
		if ctor := value.ChildByFieldName("constructor"); ctor != nil {
			origin = parser.NodeText(ctor, ctx.Source)
		}

	case "call_expression":
		resolved, ok := packageForFactoryCall(ctx, value)
		if !ok {
			return nil
		}
		pkg = resolved
		if callee := value.ChildByFieldName("function"); callee != nil {
			if unwound, ok := unwindCallee(callee, ctx.Source); ok {
				origin = unwound.Method
			}
		}

	default:
		return nil
	}

	pc := ctx.Contracts[pkg]
	if pc == nil || len(pc.Detection.RequiredListeners) == 0 {
		return nil
	}

	line, column := locate(value)
	return &TrackedEventInstance{
		Variable: varName,
		Package:  pkg,
		Origin:   origin,
		Line:     line,
		Column:   column,
		Required: pc.Detection.RequiredListeners,
		Attached: make(map[string]bool),
	}
}
