package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/precis/internal/core/domain"
)

var (
	summarizeQuery    string
	summarizeStrategy string
	summarizeJSON     bool
	summarizeNoCache  bool
	summarizeProgress bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarise a document",
	Long: `Summarise a document read from a file, or from stdin when no file is given.

Long documents are split into chunks, each chunk is summarised by the
configured LLM, and the partial summaries are merged into one. Chunks that
fail after retries are skipped and reported.

Execution strategies:
  parallel   - Chunks run concurrently, only the final summary is shown
  streaming  - Chunks run concurrently, progress is shown as each completes
  sequential - Chunks run one at a time in document order

Examples:
  precis summarize report.md
  precis summarize --query "What are the risks?" report.md
  cat notes.txt | precis summarize --strategy streaming`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeQuery, "query", "q", "", "focus the summary on a question or topic")
	summarizeCmd.Flags().StringVarP(&summarizeStrategy, "strategy", "s", "", "execution strategy: parallel, streaming or sequential")
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "output the result as JSON")
	summarizeCmd.Flags().BoolVar(&summarizeNoCache, "no-cache", false, "bypass the result cache")
	summarizeCmd.Flags().BoolVar(&summarizeProgress, "progress", false, "report each chunk as it completes")
	addChunkingFlags(summarizeCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	if summarizeService == nil {
		return errNotConfigured("summarize")
	}

	var strategy domain.ExecutionStrategy
	if summarizeStrategy != "" {
		s, err := domain.ParseExecutionStrategy(summarizeStrategy)
		if err != nil {
			return err
		}
		strategy = s
	}

	policy, err := chunkingOverride(cmd)
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd, args)
	if err != nil {
		return err
	}

	opts := domain.SummarizeOptions{
		Query:    summarizeQuery,
		Strategy: strategy,
		Policy:   policy,
		NoCache:  summarizeNoCache,
	}

	events, err := summarizeService.Stream(cmd.Context(), doc, opts)
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}

	showProgress := summarizeProgress || strategy == domain.ExecStreaming
	var final *domain.FinalSummary
	for ev := range events {
		switch ev.Kind {
		case domain.ProgressPartial:
			if showProgress && ev.Partial != nil {
				printPartial(cmd, ev)
			}
		case domain.ProgressFinal:
			final = ev.Final
		case domain.ProgressError:
			return fmt.Errorf("summarize failed: %w", ev.Err)
		}
	}
	if final == nil {
		return fmt.Errorf("summarize failed: %w", cmd.Context().Err())
	}

	if summarizeJSON {
		return outputSummaryJSON(cmd, final)
	}

	cmd.Println(final.Text)
	if final.FailedChunkCount > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d of %d chunks could not be summarised.\n",
			final.FailedChunkCount, final.SourceChunkCount)
	}
	return nil
}

func printPartial(cmd *cobra.Command, ev domain.ProgressEvent) {
	p := ev.Partial
	status := "done"
	if !p.OK() {
		status = p.Status.String()
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] chunk %d %s\n", ev.Completed, ev.Total, p.ChunkIndex+1, status)
}

func outputSummaryJSON(cmd *cobra.Command, summary *domain.FinalSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
