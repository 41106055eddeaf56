package analyzer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/engine"
	"github.com/hannajonsd/contract-analysis/parser"
	"github.com/hannajonsd/contract-analysis/suppress"
)

// ContractAnalyzer performs contract-violation analysis on source repositories
type ContractAnalyzer struct {
	opts      Options
	contracts map[string]*contract.PackageContract
}

// New creates an analyzer, loading and validating the contract corpus up front
func New(opts Options) (*ContractAnalyzer, error) {
	contracts, err := contract.LoadDir(opts.ContractsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract corpus: %w", err)
	}

	return &ContractAnalyzer{
		opts:      opts,
		contracts: contracts,
	}, nil
}

// AnalyzeRepository runs the full pipeline: discover source files, filter
// contracts by installed version, parse, run the engine, apply suppressions.
func (ca *ContractAnalyzer) AnalyzeRepository() (*Report, error) {
	fmt.Printf("Analyzing repository: %s\n", ca.opts.RepoPath)

	sourceFiles, err := ca.findSourceFiles(ca.opts.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find source files: %w", err)
	}
	fmt.Printf("Found %d source files for analysis\n", len(sourceFiles))

	applicable := ca.applicableContracts()
	if ca.opts.Verbose {
		ca.displayContracts(applicable)
	}

	// Parse everything up front; the engine only sees ready-to-traverse trees.
	// An unreadable file is fatal for that file only, never for the run.
	var parsed []*parser.ParseResult
	sources := make(map[string][]byte)

	for _, filePath := range sourceFiles {
		fileParser, err := parser.CreateParser(filePath)
		if err != nil {
			continue
		}
		result, err := fileParser.ParseFile(filePath)
		fileParser.Close()
		if err != nil {
			log.Printf("Skipping %s: %v", filePath, err)
			continue
		}
		parsed = append(parsed, result)
		sources[result.FilePath] = result.Source
	}

	eng := engine.New(applicable, ca.opts.IncludeTests)
	violations, stats := eng.Run(parsed)

	for _, result := range parsed {
		result.Tree.Close()
	}

	partition := suppress.Partition(violations, sources)

	return &Report{
		Violations: partition.Kept,
		Suppressed: partition.Suppressed,
		Stats:      stats,
		Files:      sourceFiles,
	}, nil
}

// applicableContracts filters the corpus by the repository's installed
// package versions. A contract whose version range excludes the installed
// version is skipped; unknown versions apply the contract anyway.
func (ca *ContractAnalyzer) applicableContracts() map[string]*contract.PackageContract {
	lookup := contract.NewVersionLookup(ca.opts.RepoPath)
	applicable := make(map[string]*contract.PackageContract)

	for name, pc := range ca.contracts {
		installed := lookup.InstalledVersion(name)
		if !contract.Applies(pc.VersionRange, installed) {
			if ca.opts.Verbose {
				fmt.Printf("Skipping contract %s: installed %s outside range %s\n", name, installed, pc.VersionRange)
			}
			continue
		}
		applicable[name] = pc
	}

	return applicable
}

// findSourceFiles walks the repository collecting parseable source files,
// honoring .gitignore and skipping dependency/build directories
func (ca *ContractAnalyzer) findSourceFiles(repoPath string) ([]string, error) {
	gitignore := NewGitignoreParser(repoPath)
	var files []string

	err := filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if path != repoPath && (strings.HasPrefix(name, ".") ||
				name == "node_modules" || name == "dist" || name == "build" || name == "coverage") {
				return filepath.SkipDir
			}
			return nil
		}

		if !parser.SupportedExtension(path) {
			return nil
		}
		if gitignore.ShouldIgnore(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (ca *ContractAnalyzer) displayContracts(contracts map[string]*contract.PackageContract) {
	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("\nLoaded %d applicable contracts:\n", len(names))
	for _, name := range names {
		pc := contracts[name]
		fmt.Printf("  - %s (contract v%s, %d functions)\n", name, pc.ContractVersion, len(pc.Functions))
	}
}
