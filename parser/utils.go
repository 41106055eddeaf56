package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// DeduplicateImports removes duplicate imports based on package name, alias, and import type
func DeduplicateImports(imports []PackageImport) []PackageImport {
	seen := make(map[string]bool)
	var result []PackageImport

	for _, imp := range imports {
		key := fmt.Sprintf("%s|%s|%s", imp.PackageName, imp.Alias, imp.ImportType)
		if !seen[key] {
			seen[key] = true
			result = append(result, imp)
		}
	}

	return result
}

// NodeText returns the source text covered by a node
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// ExtractStringValue removes quotes from string literals in AST nodes
func ExtractStringValue(node *sitter.Node, source []byte) string {
	text := NodeText(node, source)
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'' || text[0] == '`') {
		text = text[1 : len(text)-1]
	}
	return text
}

// WalkAST recursively traverses an AST in source order and applies a visitor
// function to each node
func WalkAST(node *sitter.Node, visitor func(*sitter.Node)) {
	visitor(node)

	for i := 0; i < int(node.ChildCount()); i++ {
		WalkAST(node.Child(i), visitor)
	}
}

// WalkShallow traverses like WalkAST but asks the visitor whether to descend
// into each node's children. Used for module-level-only passes that must not
// enter function bodies.
func WalkShallow(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		WalkShallow(node.Child(i), visitor)
	}
}

// ParseFileGeneric provides common file parsing functionality for all language parsers
func (bp *BaseParser) ParseFileGeneric(filePath string) (*ParseResult, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return bp.ParseGeneric(source, filePath)
}

// ParseGeneric parses in-memory source into a tree
func (bp *BaseParser) ParseGeneric(source []byte, filePath string) (*ParseResult, error) {
	tree, err := bp.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filePath, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s", filePath)
	}

	return &ParseResult{
		Tree:     tree,
		Source:   source,
		Language: bp.langName,
		FilePath: filePath,
	}, nil
}

// GetLanguage returns the language name for this parser
func (bp *BaseParser) GetLanguage() string {
	return bp.langName
}

func (bp *BaseParser) Close() {
}
