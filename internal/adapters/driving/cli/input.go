package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// maxInputBytes bounds documents read from a file or stdin.
const maxInputBytes = 64 << 20

// readDocument loads the document named by args, or stdin when args is
// empty or "-".
func readDocument(cmd *cobra.Command, args []string) (domain.Document, error) {
	var (
		r      io.Reader
		source string
	)
	if len(args) == 0 || args[0] == "-" {
		r = cmd.InOrStdin()
		source = "stdin"
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return domain.Document{}, fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		r = f
		source = args[0]
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", source, err)
	}
	if len(data) > maxInputBytes {
		return domain.Document{}, fmt.Errorf("%w: %s exceeds %d MiB", domain.ErrInvalidInput, source, maxInputBytes>>20)
	}

	return domain.Document{
		Text: string(data),
		Metadata: map[string]string{
			"source": source,
			"title":  filepath.Base(source),
		},
	}, nil
}

// addChunkingFlags registers policy override flags on cmd.
func addChunkingFlags(cmd *cobra.Command) {
	cmd.Flags().String("chunking", "", "chunking strategy: hierarchical, semantic or fixed")
	cmd.Flags().Int("max-tokens", 0, "maximum tokens per chunk")
	cmd.Flags().Int("overlap", 0, "tokens repeated from the previous chunk")
}

// chunkingOverride builds a policy from the configured one and any changed
// flags. It returns nil when no flag was given.
func chunkingOverride(cmd *cobra.Command) (*domain.ChunkingPolicy, error) {
	flags := cmd.Flags()
	if !flags.Changed("chunking") && !flags.Changed("max-tokens") && !flags.Changed("overlap") {
		return nil, nil
	}

	policy := domain.DefaultChunkingPolicy()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			policy = settings.Chunking
		}
	}

	if flags.Changed("chunking") {
		name, _ := flags.GetString("chunking") //nolint:errcheck // flag is registered
		strategy, err := domain.ParseChunkStrategy(name)
		if err != nil {
			return nil, err
		}
		policy.Strategy = strategy
	}
	if flags.Changed("max-tokens") {
		policy.MaxTokens, _ = flags.GetInt("max-tokens") //nolint:errcheck // flag is registered
	}
	if flags.Changed("overlap") {
		policy.OverlapTokens, _ = flags.GetInt("overlap") //nolint:errcheck // flag is registered
	}
	return &policy, nil
}
