// parser/typescript.go - Tree-sitter based TypeScript/TSX parsers
package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type TypeScriptParser struct {
	BaseParser
}

func NewTypeScriptParser() (*TypeScriptParser, error) {
	parser := sitter.NewParser()
	language := typescript.GetLanguage()
	parser.SetLanguage(language)

	return &TypeScriptParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: "typescript",
		},
	}, nil
}

// NewTSXParser handles .tsx files, which use a separate grammar because JSX
// and TypeScript type assertions are ambiguous in a single grammar.
func NewTSXParser() (*TypeScriptParser, error) {
	parser := sitter.NewParser()
	language := tsx.GetLanguage()
	parser.SetLanguage(language)

	return &TypeScriptParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: "tsx",
		},
	}, nil
}

func (p *TypeScriptParser) ParseFile(filePath string) (*ParseResult, error) {
	return p.ParseFileGeneric(filePath)
}

func (p *TypeScriptParser) Parse(source []byte, filePath string) (*ParseResult, error) {
	return p.ParseGeneric(source, filePath)
}

func (p *TypeScriptParser) ExtractImports(node *sitter.Node, source []byte) ([]PackageImport, error) {
	return extractImports(node, source), nil
}
