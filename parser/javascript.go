// parser/javascript.go - Tree-sitter based JavaScript/JSX parser
package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

type JavaScriptParser struct {
	BaseParser
}

func NewJavaScriptParser() (*JavaScriptParser, error) {
	parser := sitter.NewParser()
	language := javascript.GetLanguage()
	parser.SetLanguage(language)

	return &JavaScriptParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: "javascript",
		},
	}, nil
}

func (p *JavaScriptParser) ParseFile(filePath string) (*ParseResult, error) {
	return p.ParseFileGeneric(filePath)
}

func (p *JavaScriptParser) Parse(source []byte, filePath string) (*ParseResult, error) {
	return p.ParseGeneric(source, filePath)
}

func (p *JavaScriptParser) ExtractImports(node *sitter.Node, source []byte) ([]PackageImport, error) {
	return extractImports(node, source), nil
}

// extractImports collects ES module imports and CommonJS requires from a tree.
// Shared by the JavaScript and TypeScript parsers; the import grammar nodes are
// identical across the two grammars.
func extractImports(node *sitter.Node, source []byte) []PackageImport {
	var imports []PackageImport

	WalkAST(node, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			if imp := processImportStatement(n, source); imp != nil {
				imports = append(imports, *imp)
			}
		case "variable_declarator":
			if imp := processRequireDeclarator(n, source); imp != nil {
				imports = append(imports, *imp)
			}
		}
	})

	return DeduplicateImports(imports)
}

func processImportStatement(node *sitter.Node, source []byte) *PackageImport {
	var packageName, alias, importType string
	var symbols []string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case "import_clause":
			alias, importType, symbols = processImportClause(child, source)
		case "string":
			packageName = ExtractStringValue(child, source)
		}
	}

	if packageName == "" {
		return nil
	}

	if len(symbols) > 0 {
		return &PackageImport{
			PackageName: packageName,
			Alias:       symbols[0],
			ImportType:  "destructured",
			Symbols:     symbols,
		}
	}

	if alias != "" {
		return &PackageImport{
			PackageName: packageName,
			Alias:       alias,
			ImportType:  importType,
		}
	}

	return nil
}

func processImportClause(node *sitter.Node, source []byte) (string, string, []string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case "identifier":
			// Default import: import foo from "module"
			return NodeText(child, source), "import", nil
		case "namespace_import":
			// Namespace import: import * as foo from "module"
			return processNamespaceImport(child, source), "namespace", nil
		case "named_imports":
			// Named imports: import { a, b, c } from "module"
			return "", "", processNamedImports(child, source)
		}
	}
	return "", "", nil
}

func processNamespaceImport(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

func processNamedImports(node *sitter.Node, source []byte) []string {
	var symbols []string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		if child.Type() == "import_specifier" {
			if symbol := processImportSpecifier(child, source); symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	}

	return symbols
}

func processImportSpecifier(node *sitter.Node, source []byte) string {
	var name, alias string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			if name == "" {
				name = NodeText(child, source)
			} else {
				alias = NodeText(child, source)
			}
		}
	}

	if alias != "" {
		return alias
	}
	return name
}

func processRequireDeclarator(node *sitter.Node, source []byte) *PackageImport {
	var alias, packageName string
	var symbols []string
	var isRequire bool

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case "identifier":
			alias = NodeText(child, source)
		case "object_pattern":
			symbols = processObjectPattern(child, source)
		case "call_expression":
			packageName, isRequire = processRequireCall(child, source)
		}
	}

	if !isRequire || packageName == "" {
		return nil
	}

	if len(symbols) > 0 {
		return &PackageImport{
			PackageName: packageName,
			Alias:       symbols[0],
			ImportType:  "destructured",
			Symbols:     symbols,
		}
	}

	if alias != "" {
		return &PackageImport{
			PackageName: packageName,
			Alias:       alias,
			ImportType:  "require",
		}
	}

	return nil
}

func processObjectPattern(node *sitter.Node, source []byte) []string {
	var symbols []string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			symbols = append(symbols, NodeText(child, source))
		case "pair_pattern", "pair":
			// { original: renamed } - record the local name
			if symbol := processPatternPair(child, source); symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	}

	return symbols
}

func processPatternPair(node *sitter.Node, source []byte) string {
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

func processRequireCall(node *sitter.Node, source []byte) (string, bool) {
	var functionName, packageName string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		switch child.Type() {
		case "identifier":
			functionName = NodeText(child, source)
		case "arguments":
			for j := 0; j < int(child.ChildCount()); j++ {
				if arg := child.Child(j); arg.Type() == "string" {
					packageName = ExtractStringValue(arg, source)
					break
				}
			}
		}
	}

	return packageName, functionName == "require"
}
