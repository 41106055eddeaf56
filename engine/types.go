package engine

import (
	"log"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// CallSite is a concrete call expression resolved to a contract function
type CallSite struct {
	File     string
	Line     int // 1-indexed
	Column   int // 1-indexed
	Function string
	Package  string
}

// Violation is one detected breach of a contract postcondition. Produced,
// never mutated; independent of all other violations.
type Violation struct {
	ID              string            `json:"id"`
	Severity        contract.Severity `json:"severity"`
	File            string            `json:"file"`
	Line            int               `json:"line"`
	Column          int               `json:"column"`
	Package         string            `json:"package"`
	Function        string            `json:"function"`
	PostconditionID string            `json:"postconditionId"`
	Description     string            `json:"description"`
	SuggestedFix    string            `json:"suggestedFix,omitempty"`
	DocsURL         string            `json:"docsUrl,omitempty"`
}

// ProtectionProfile is the analyzer's judgment of how a call site's failure
// path is handled
type ProtectionProfile struct {
	InTry            bool
	HasPromiseCatch  bool
	ChecksResponse   bool
	ChecksStatus     bool
	HandledCodes     map[int]bool
	HasRetrySignal   bool
	HasGlobalHandler bool
}

// Protected reports whether the call site has any failure handling at all
func (p ProtectionProfile) Protected() bool {
	return p.InTry || p.HasPromiseCatch || p.HasGlobalHandler
}

// RunStats summarizes an engine run
type RunStats struct {
	FilesAnalyzed    int `json:"filesAnalyzed"`
	FilesSkipped     int `json:"filesSkipped"`
	CallSitesMatched int `json:"callSitesMatched"`
	Postconditions   int `json:"postconditionsChecked"`
}

// FileContext carries all per-file mutable state for one traversal. Created at
// file entry, discarded at file exit; never shared across files. Only the
// contract map persists across files, and only for reading.
type FileContext struct {
	FilePath  string
	Source    []byte
	Contracts map[string]*contract.PackageContract

	Imports *ImportTable

	// Bindings maps a variable or property name to the package it was
	// constructed from. Last write wins within a file; a variable reused for
	// two different client instances resolves to the later one. Known
	// limitation, preserved deliberately.
	Bindings map[string]string

	// Interceptors records which instance variables had an interceptor-style
	// global error handler registered anywhere in the file.
	Interceptors map[string]bool

	classToPackage map[string]string
	typeToPackage  map[string]string
	factoryMethods map[string]string // factory method name -> package
}

// NewFileContext builds the per-file analysis context, including the
// class/type/factory registries derived from the contracts' detection rules.
func NewFileContext(file *parser.ParseResult, contracts map[string]*contract.PackageContract) *FileContext {
	ctx := &FileContext{
		FilePath:       file.FilePath,
		Source:         file.Source,
		Contracts:      contracts,
		Bindings:       make(map[string]string),
		Interceptors:   make(map[string]bool),
		classToPackage: make(map[string]string),
		typeToPackage:  make(map[string]string),
		factoryMethods: make(map[string]string),
	}

	for name, pc := range contracts {
		for _, class := range pc.Detection.ClassNames {
			ctx.classToPackage[class] = name
		}
		for _, typeName := range pc.Detection.TypeNames {
			ctx.typeToPackage[typeName] = name
		}
		for _, factory := range pc.Detection.FactoryMethods {
			ctx.factoryMethods[factory] = name
		}
	}

	imports, err := importsForFile(file)
	if err != nil {
		// the file still gets analyzed, just with an empty import table
		log.Printf("Import extraction failed for %s: %v", file.FilePath, err)
	}
	ctx.Imports = NewImportTable(imports)

	return ctx
}

func importsForFile(file *parser.ParseResult) ([]parser.PackageImport, error) {
	fileParser, err := parser.CreateParser(file.FilePath)
	if err != nil {
		return nil, err
	}
	defer fileParser.Close()

	return fileParser.ExtractImports(file.Tree.RootNode(), file.Source)
}

// locate converts a node position to a 1-indexed line/column pair
func locate(node *sitter.Node) (int, int) {
	point := node.StartPoint()
	return int(point.Row) + 1, int(point.Column) + 1
}
