package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/hannajonsd/contract-analysis/analyzer"
)

func main() {
	root := &cobra.Command{
		Use:   "contract-analysis",
		Short: "Static analysis of library calls against error-handling contracts",
	}
	root.AddCommand(newAnalyzeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		contractsDir string
		format       string
		includeTests bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a repository for contract violations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := "."
			if len(args) > 0 {
				repoPath = args[0]
			}

			fmt.Println("=== Contract Violation Analysis ===")

			ca, err := analyzer.New(analyzer.Options{
				RepoPath:     repoPath,
				ContractsDir: contractsDir,
				IncludeTests: includeTests,
				Verbose:      verbose,
			})
			if err != nil {
				log.Fatalf("Setup failed: %v", err)
			}

			report, err := ca.AnalyzeRepository()
			if err != nil {
				log.Fatalf("Analysis failed: %v", err)
			}

			switch format {
			case "json":
				if err := analyzer.WriteJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			default:
				analyzer.DisplayResults(report)
			}

			if report.ErrorCount() > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contractsDir, "contracts", "contracts", "Directory containing the contract corpus")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&includeTests, "include-tests", false, "Also analyze test-like files")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose output")

	return cmd
}
