package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/precis/internal/core/domain"
)

var (
	chunksJSON bool
	chunksText bool
)

var chunksCmd = &cobra.Command{
	Use:   "chunks [file]",
	Short: "Show how a document would be chunked",
	Long: `Split a document with the configured chunking policy and print the plan
without calling an LLM. Useful for tuning --max-tokens and --overlap.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "output chunks as JSON")
	chunksCmd.Flags().BoolVar(&chunksText, "text", false, "print each chunk's text")
	addChunkingFlags(chunksCmd)
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	if summarizeService == nil {
		return errNotConfigured("summarize")
	}

	policy, err := chunkingOverride(cmd)
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd, args)
	if err != nil {
		return err
	}

	chunks, err := summarizeService.Plan(doc, policy)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	if chunksJSON {
		return outputChunksJSON(cmd, chunks)
	}
	return outputChunksTable(cmd, chunks)
}

type chunkJSON struct {
	Index       int      `json:"index"`
	TokenCount  int      `json:"token_count"`
	SectionPath []string `json:"section_path,omitempty"`
	IsAtomic    bool     `json:"is_atomic,omitempty"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	Text        string   `json:"text,omitempty"`
}

func outputChunksJSON(cmd *cobra.Command, chunks []domain.Chunk) error {
	out := make([]chunkJSON, len(chunks))
	for i := range chunks {
		out[i] = chunkJSON{
			Index:       chunks[i].Index,
			TokenCount:  chunks[i].TokenCount,
			SectionPath: chunks[i].SectionPath,
			IsAtomic:    chunks[i].IsAtomic,
			StartOffset: chunks[i].StartOffset,
			EndOffset:   chunks[i].EndOffset,
		}
		if chunksText {
			out[i].Text = chunks[i].Text
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputChunksTable(cmd *cobra.Command, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		cmd.Println("No chunks.")
		return nil
	}

	total := 0
	for i := range chunks {
		c := &chunks[i]
		total += c.TokenCount

		// Format: [N] tokens bytes start-end [atomic] Section > Path
		line := fmt.Sprintf("  [%d] %5d tokens  bytes %d-%d", c.Index+1, c.TokenCount, c.StartOffset, c.EndOffset)
		if c.IsAtomic {
			line += "  atomic"
		}
		if len(c.SectionPath) > 0 {
			line += "  " + strings.Join(c.SectionPath, " > ")
		}
		cmd.Println(line)

		if chunksText {
			cmd.Println(indent(c.Text, "      "))
			cmd.Println()
		}
	}

	cmd.Println()
	cmd.Printf("%d chunks, %d tokens\n", len(chunks), total)
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
