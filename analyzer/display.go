package analyzer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hannajonsd/contract-analysis/contract"
	"github.com/hannajonsd/contract-analysis/engine"
)

// DisplayResults shows the final analysis results in a formatted output
func DisplayResults(report *Report) {
	if len(report.Violations) == 0 {
		fmt.Println("✅ No contract violations found!")
		fmt.Printf("   Analyzed %d source files against %d postconditions\n",
			report.Stats.FilesAnalyzed, report.Stats.Postconditions)
	} else {
		byFile := groupByFile(report.Violations)

		fmt.Printf("\nFound %d violations in %d files:\n\n", len(report.Violations), len(byFile.order))

		for _, filePath := range byFile.order {
			fmt.Printf(" %s\n", filePath)
			for _, v := range byFile.groups[filePath] {
				fmt.Printf("  %s %d:%d [%s] %s\n", severityMark(v.Severity), v.Line, v.Column, v.ID, v.Description)
				if v.SuggestedFix != "" {
					fmt.Printf("       fix: %s\n", v.SuggestedFix)
				}
				if v.DocsURL != "" {
					fmt.Printf("       docs: %s\n", v.DocsURL)
				}
			}
			fmt.Println()
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("SUMMARY")
	fmt.Printf("Files analyzed: %d (skipped %d test files)\n", report.Stats.FilesAnalyzed, report.Stats.FilesSkipped)
	fmt.Printf("Contract call sites matched: %d\n", report.Stats.CallSitesMatched)

	errors, warnings, infos := 0, 0, 0
	for _, v := range report.Violations {
		switch v.Severity {
		case contract.SeverityError:
			errors++
		case contract.SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	fmt.Printf("Violations: %d errors, %d warnings, %d info\n", errors, warnings, infos)
	if len(report.Suppressed) > 0 {
		fmt.Printf("Suppressed by inline comments: %d\n", len(report.Suppressed))
	}
}

// WriteJSON renders the report as indented JSON
func WriteJSON(w io.Writer, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

type fileGroups struct {
	order  []string
	groups map[string][]engine.Violation
}

// groupByFile buckets violations per file, preserving first-seen file order
func groupByFile(violations []engine.Violation) fileGroups {
	result := fileGroups{groups: make(map[string][]engine.Violation)}

	for _, v := range violations {
		if _, seen := result.groups[v.File]; !seen {
			result.order = append(result.order, v.File)
		}
		result.groups[v.File] = append(result.groups[v.File], v)
	}

	return result
}

func severityMark(severity contract.Severity) string {
	switch severity {
	case contract.SeverityError:
		return "❌"
	case contract.SeverityWarning:
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}
