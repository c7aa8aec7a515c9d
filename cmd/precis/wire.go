package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/precis/internal/adapters/driven/ai"
	"github.com/custodia-labs/precis/internal/adapters/driven/cache"
	"github.com/custodia-labs/precis/internal/adapters/driven/config/file"
	filestore "github.com/custodia-labs/precis/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/precis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/precis/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/precis/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/precis/internal/adapters/driving/cli"
	"github.com/custodia-labs/precis/internal/chunker"
	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/core/services"
	"github.com/custodia-labs/precis/internal/logger"
)

// tokenizerLoader is replaced in tests to keep them offline.
var tokenizerLoader = func() driven.TokenizerLoader { return tokenizer.NewLoader() }

// wire builds every service from the configuration in dir.
// An unconfigured LLM leaves planning available and summarising disabled.
func wire(ctx context.Context, dir string) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("read settings: %w", err)
	}

	prompts, err := file.NewPromptStore(subdir(dir, "prompts"))
	if err != nil {
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	closers := []func(){}
	cleanup := func() {
		cancel()
		wg.Wait()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := prompts.Watch(bgCtx); err != nil {
			logger.Warn("prompt reload disabled: %v", err)
		}
	}()

	// Tokenizers load on first count so commands that never chunk stay offline.
	model := settings.LLM.ModelRef()
	count := services.HeuristicTokens
	if model.Provider.IsValid() {
		counter := services.NewTokenCounter(tokenizerLoader())
		count = func(text string) int {
			return counter.Count(text, model).Tokens
		}
	}

	var rc *cache.Cache
	var maintainer driven.CacheMaintainer
	if settings.Cache.Enabled {
		store, err := openCacheStore(settings.Cache, dir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		var janitor *services.CacheJanitor
		rc = cache.New(store,
			cache.WithMaxBytes(settings.Cache.MaxBytes),
			cache.WithCommitHook(func() { janitor.Nudge() }),
		)
		janitor = services.NewCacheJanitor(rc, settings.Cache.EvictInterval)
		maintainer = rc

		wg.Add(1)
		go func() {
			defer wg.Done()
			janitor.Start(bgCtx) //nolint:errcheck // returns ctx.Err on shutdown
		}()
		closers = append(closers, func() {
			if err := rc.Close(); err != nil {
				logger.Warn("close cache: %v", err)
			}
		})
	}

	var orchestrator *services.Orchestrator
	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Debug("summarisation disabled: %v", err)
	} else {
		opts := []services.OrchestratorOption{
			services.WithPromptStore(prompts),
			services.WithTokenCount(count),
		}
		if rc != nil {
			opts = append(opts, services.WithResultCache(rc, settings.Cache.TTL))
		}
		orchestrator = services.NewOrchestrator(llm, model, settings.Summarize, opts...)
		closers = append(closers, func() { llm.Close() })
	}

	return &cli.Services{
		Settings:  settingsService,
		Summarize: services.NewSummarizeService(chunker.New(count), orchestrator, count, *settings),
		Cache:     services.NewCacheService(maintainer),
	}, cleanup, nil
}

// openCacheStore opens the configured durable backend.
func openCacheStore(cfg domain.CacheSettings, dir string) (driven.CacheStore, error) {
	switch cfg.Backend {
	case domain.CacheBackendMemory:
		return memory.NewCacheStore(), nil
	case domain.CacheBackendFile:
		cacheDir := cfg.Dir
		if cacheDir == "" {
			cacheDir = subdir(dir, filepath.Join("data", "cache"))
		}
		store, err := filestore.NewCacheStore(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		return store, nil
	case domain.CacheBackendSQLite, "":
		dataDir := cfg.Dir
		if dataDir == "" {
			dataDir = subdir(dir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return store.CacheStore(), nil
	default:
		return nil, fmt.Errorf("%w: cache backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}

// subdir returns dir/name, or empty so adapters fall back to ~/.precis.
func subdir(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}
