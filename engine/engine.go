package engine

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/parser"
)

// Engine drives the violation-detection passes over a set of parsed files.
// The contract map is read-only for the whole run; all other state is
// per-file and discarded at file exit.
type Engine struct {
	contracts    map[string]*contract.PackageContract
	includeTests bool
}

// New creates an engine for one run. The contract map must already be
// validated by the corpus loader.
func New(contracts map[string]*contract.PackageContract, includeTests bool) *Engine {
	return &Engine{
		contracts:    contracts,
		includeTests: includeTests,
	}
}

// Run analyzes every file and returns the ordered violation list plus run
// statistics. Output is deterministic: files in sorted path order, call sites
// in traversal order within a file, postconditions in contract-declaration
// order within a call site.
func (e *Engine) Run(files []*parser.ParseResult) ([]Violation, RunStats) {
	sorted := make([]*parser.ParseResult, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	var violations []Violation
	var stats RunStats

	for _, file := range sorted {
		if !e.includeTests && isTestFile(file.FilePath) {
			stats.FilesSkipped++
			continue
		}

		fileViolations, matched := e.analyzeFile(file)
		violations = append(violations, fileViolations...)
		stats.FilesAnalyzed++
		stats.CallSitesMatched += matched
	}

	stats.Postconditions = e.countPostconditions()
	return violations, stats
}

// AnalyzeFile runs all passes over a single parsed file
func (e *Engine) AnalyzeFile(file *parser.ParseResult) []Violation {
	violations, _ := e.analyzeFile(file)
	return violations
}

func (e *Engine) analyzeFile(file *parser.ParseResult) ([]Violation, int) {
	ctx := NewFileContext(file, e.contracts)
	root := file.Tree.RootNode()

	// First pass: instance bindings and interceptor registrations for the
	// whole file, so a registration below a call site still counts.
	CollectBindings(ctx, root)

	// Second pass: resolve call sites in traversal order and evaluate their
	// postconditions against the surrounding protection.
	var violations []Violation
	matched := 0

	parser.WalkAST(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		site, ok := ResolveCall(ctx, n)
		if !ok {
			return
		}
		matched++

		// Reactive hooks have their own pass with hook-specific handling
		// semantics; evaluating them here would report the same call twice.
		if _, isHook := hookKinds[site.Function]; isHook {
			return
		}

		fc := e.contracts[site.Package].Function(site.Function)
		profile := AnalyzeProtection(ctx, n, rootInstanceVar(ctx, n))
		violations = append(violations, Evaluate(site, fc, e.contracts[site.Package], profile)...)
	})

	// Specialized passes share the same tree; their violations follow the
	// generic ones in a fixed order.
	violations = append(violations, AnalyzeHooks(ctx, root)...)
	violations = append(violations, AnalyzeAwaits(ctx, root)...)
	violations = append(violations, AnalyzeCheckedReturns(ctx, root)...)
	violations = append(violations, AnalyzeListeners(ctx, root, false)...)

	return violations, matched
}

func (e *Engine) countPostconditions() int {
	total := 0
	for _, pc := range e.contracts {
		for _, fn := range pc.Functions {
			total += len(fn.Postconditions)
		}
	}
	return total
}

// isTestFile recognizes test-like files by common naming conventions
func isTestFile(path string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	if strings.Contains(normalized, "/__tests__/") || strings.Contains(normalized, "/__mocks__/") {
		return true
	}
	base := normalized[strings.LastIndex(normalized, "/")+1:]
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}
