package analyzer

import (
	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/engine"
)

// Options configure one repository analysis run
type Options struct {
	RepoPath     string
	ContractsDir string
	IncludeTests bool
	Verbose      bool
}

// Report is the aggregate outcome of a run
type Report struct {
	Violations []engine.Violation `json:"violations"`
	Suppressed []engine.Violation `json:"suppressed"`
	Stats      engine.RunStats    `json:"stats"`
	Files      []string           `json:"files"`
}

// ErrorCount returns the number of unsuppressed error-severity violations
func (r *Report) ErrorCount() int {
	count := 0
	for _, v := range r.Violations {
		if contract.SeverityGTE(v.Severity, contract.SeverityError) {
			count++
		}
	}
	return count
}
