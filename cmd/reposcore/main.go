package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/reposcore/reposcore/pkg/console"
	"github.com/reposcore/reposcore/pkg/constants"
	"github.com/reposcore/reposcore/pkg/model"
	"github.com/reposcore/reposcore/pkg/pipeline"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     constants.CLIExtensionPrefix,
	Short:   "Repository quality scorecard generator",
	Version: version,
	Long: `reposcore fetches a repository at a revision, runs its language's
analysis tools, and emits an evidence-backed quality scorecard.

Common Tasks:
  reposcore run octo/example               # Score the default branch
  reposcore run octo/example --rev v1.2.0   # Score a specific revision`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output showing detailed progress")
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n",
		console.FormatInfoMessage(fmt.Sprintf("%s version {{.Version}}", constants.CLIExtensionPrefix))))

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		for _, subCmd := range cmd.Commands() {
			if subCmd.Name() == "completion" {
				subCmd.Hidden = true
			}
		}
		originalHelpFunc(cmd, args)
	})

	rootCmd.AddCommand(newRunCommand())
}

func newRunCommand() *cobra.Command {
	var (
		revision        string
		outputDir       string
		format          string
		timeoutSeconds  int
		enableChecklist bool
		checklistConfig string
	)

	cmd := &cobra.Command{
		Use:   "run <repo-url-or-slug>",
		Short: "Fetch a repository and produce its quality scorecard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			if existing, statErr := os.Stat(filepath.Join(outputDir, "submission.json")); statErr == nil && !existing.IsDir() && isatty.IsTerminal(os.Stdin.Fd()) {
				overwrite, confirmErr := console.ConfirmAction(
					fmt.Sprintf("%s already contains a scorecard. Overwrite it?", outputDir),
					"Overwrite", "Cancel")
				if confirmErr != nil || !overwrite {
					return nil
				}
			}

			opts := pipeline.Options{
				RepoURL:         args[0],
				Revision:        revision,
				OutputDir:       outputDir,
				Format:          pipeline.Format(format),
				TimeoutSeconds:  timeoutSeconds,
				EnableChecklist: enableChecklist,
				ChecklistConfig: checklistConfig,
				Verbose:         verbose,
			}

			result, exitCode, err := pipeline.Run(context.Background(), opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
			}

			if verbose && result.Record.Repository.SizeMB > 0 {
				sizeBytes := int64(result.Record.Repository.SizeMB * 1024 * 1024)
				bar := console.NewProgressBar(sizeBytes)
				fmt.Fprintln(os.Stderr, bar.Update(sizeBytes))
				fmt.Fprint(os.Stderr, console.RenderStruct(result.Record))
			}

			if result.Scorecard != nil && isatty.IsTerminal(os.Stderr.Fd()) {
				fmt.Fprint(os.Stderr, renderSummary(*result.Scorecard))
				if verbose {
					fmt.Fprint(os.Stderr, console.RenderStruct(result.Scorecard.ChecklistItems))
				}
			}

			os.Exit(int(exitCode))
			return nil
		},
	}

	cmd.Flags().StringVar(&revision, "rev", "", "Revision (branch, tag, or SHA) to score; defaults to the repository's default branch")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory where submission.json, score_input.json, evaluation_report.md, and evidence/ are written")
	cmd.Flags().StringVar(&format, "format", "both", "Human artifact format to emit: json, markdown, or both")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout-seconds", constants.DefaultTimeoutSeconds, "Global pipeline deadline in seconds")
	cmd.Flags().BoolVar(&enableChecklist, "enable-checklist", true, "Evaluate the rubric checklist and emit a scorecard in addition to metrics")
	cmd.Flags().StringVar(&checklistConfig, "checklist-config", "rubric.yaml", "Path to the rubric file")

	return cmd
}

func renderSummary(sc model.Scorecard) string {
	dims := make([]string, 0, len(sc.CategoryBreakdowns))
	for d := range sc.CategoryBreakdowns {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	rows := make([][]string, 0, len(dims))
	for _, d := range dims {
		b := sc.CategoryBreakdowns[d]
		rows = append(rows, []string{d, fmt.Sprintf("%.1f", b.Awarded), fmt.Sprintf("%.1f", b.Max), b.Grade})
	}

	return console.RenderTable(console.TableConfig{
		Title:   fmt.Sprintf("Scorecard: %.1f / %.1f (%.1f%%)", sc.TotalScore, sc.MaxPossibleScore, sc.ScorePercentage),
		Headers: []string{"Dimension", "Awarded", "Max", "Grade"},
		Rows:    rows,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(int(pipeline.ExitInternal))
	}
}
