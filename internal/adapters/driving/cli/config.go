package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/precis/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and configure the LLM provider, chunking policy, execution strategy
and result cache.

Settings are stored in config.toml under the configuration directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider",
	Long: `Select an LLM provider and model interactively.

API keys may be left blank when OPENAI_API_KEY, ANTHROPIC_API_KEY or
GEMINI_API_KEY is set; keys read from the environment are never written
to disk.`,
	RunE: runConfigLLM,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and provider connectivity",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	llm := settings.LLM
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", llm.Provider.Description())
	cmd.Printf("  Model: %s\n", llm.Model)
	if llm.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", llm.BaseURL)
	}
	if llm.Provider.RequiresAPIKey() {
		if llm.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(llm.APIKey))
		} else {
			cmd.Printf("  API Key: (not set, checked %s)\n", llm.Provider.APIKeyEnv())
		}
	}
	if llm.RequestsPerSecond > 0 {
		cmd.Printf("  Rate Limit: %g req/s (burst %d)\n", llm.RequestsPerSecond, llm.Burst)
	}
	status := "configured"
	if !llm.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	chunking := settings.Chunking
	cmd.Println("[Chunking]")
	cmd.Printf("  Strategy: %s\n", chunking.Strategy.Description())
	cmd.Printf("  Max Tokens: %d\n", chunking.MaxTokens)
	cmd.Printf("  Overlap Tokens: %d\n", chunking.OverlapTokens)
	cmd.Printf("  Atomic Overflow Ceiling: %gx\n", chunking.AtomicOverflowCeiling)
	cmd.Println()

	sum := settings.Summarize
	cmd.Println("[Summarize]")
	cmd.Printf("  Strategy: %s\n", sum.Strategy.Description())
	cmd.Printf("  Concurrency: %d\n", sum.Concurrency)
	cmd.Printf("  Retries: %d (backoff %s to %s)\n", sum.MaxRetries, sum.InitialBackoff, sum.MaxBackoff)
	cmd.Printf("  Chunk Timeout: %s\n", sum.ChunkTimeout)
	cmd.Printf("  Pipeline Timeout: %s\n", sum.PipelineTimeout)
	cmd.Printf("  Direct Threshold: %d tokens\n", sum.DirectThreshold)
	cmd.Println()

	cache := settings.Cache
	cmd.Println("[Cache]")
	if cache.Enabled {
		cmd.Printf("  Enabled: yes (%s)\n", cache.Backend)
		if cache.TTL > 0 {
			cmd.Printf("  TTL: %s\n", cache.TTL)
		} else {
			cmd.Printf("  TTL: never expires\n")
		}
		if cache.MaxBytes > 0 {
			cmd.Printf("  Max Size: %s\n", humanize.IBytes(uint64(cache.MaxBytes)))
		}
	} else {
		cmd.Printf("  Enabled: no\n")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'precis config llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cmd.Print("Checking provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed; blank falls back to the environment.
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Printf("Enter API key (blank to use %s): ", selectedProvider.APIKeyEnv())
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
