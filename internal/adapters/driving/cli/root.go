// Package cli provides the cobra command tree for precis.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/precis/internal/core/ports/driving"
	"github.com/custodia-labs/precis/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services used by commands. Nil means not configured.
var (
	settingsService  driving.SettingsService
	summarizeService driving.SummarizeService
	cacheService     driving.CacheService
)

// Persistent flags.
var (
	verbose   bool
	configDir string
)

// Services holds the driving ports commands run against.
type Services struct {
	Settings  driving.SettingsService
	Summarize driving.SummarizeService
	Cache     driving.CacheService
}

// Bootstrap builds services for the resolved configuration directory.
// An empty dir means the default (~/.precis). The returned cleanup runs
// after the command finishes.
type Bootstrap func(ctx context.Context, dir string) (*Services, func(), error)

var (
	bootstrap Bootstrap
	cleanup   func()
)

var rootCmd = &cobra.Command{
	Use:   "precis",
	Short: "Summarise long documents with any LLM",
	Long: `precis splits long documents into token-bounded chunks, summarises each
chunk with an LLM and merges the results into one summary.

Identical requests are served from a local result cache. Configure a provider
with 'precis config llm' before summarising.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show chunk, map and reduce progress")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.precis)")
}

// SetVersion sets the version reported by 'precis version'.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that wires services before each command.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	summarizeService = s.Summarize
	cacheService = s.Cache
}

// Execute runs the root command. Interrupts cancel the command context so
// in-flight LLM calls stop promptly.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer teardown()

	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil {
		return nil
	}

	svcs, done, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return err
	}
	SetServices(svcs)
	cleanup = done
	return nil
}

func teardown() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

// errNotConfigured is returned when a command runs without its service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
