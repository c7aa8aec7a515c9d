package services

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// mapPhase summarises every chunk under the request's strategy. Chunk
// failures are recorded in the partials; only cancellation of the run
// returns an error. The result is indexed like req.Chunks.
func (o *Orchestrator) mapPhase(
	ctx context.Context,
	req SummarizeRequest,
	emit emitFunc,
) ([]domain.PartialSummary, error) {
	total := len(req.Chunks)
	partials := make([]domain.PartialSummary, total)

	switch req.Strategy {
	case domain.ExecSequential:
		for i, c := range req.Chunks {
			if ctx.Err() != nil {
				break
			}
			partials[i] = o.summarizeChunk(ctx, c, total, req.Query)
			if emit != nil {
				p := partials[i]
				emit(domain.ProgressEvent{Kind: domain.ProgressPartial, Partial: &p, Completed: i + 1, Total: total})
			}
		}

	case domain.ExecParallel, domain.ExecStreaming:
		var (
			mu        sync.Mutex
			completed int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.settings.Concurrency)
		for i, c := range req.Chunks {
			g.Go(func() error {
				p := o.summarizeChunk(gctx, c, total, req.Query)
				partials[i] = p
				if emit == nil || req.Strategy != domain.ExecStreaming {
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				completed++
				emit(domain.ProgressEvent{Kind: domain.ProgressPartial, Partial: &p, Completed: completed, Total: total})
				return nil
			})
		}
		// Chunk failures never surface as group errors.
		_ = g.Wait()
	}

	if ctx.Err() != nil {
		return nil, runError(ctx)
	}
	return partials, nil
}

// summarizeChunk runs one chunk through the LLM with retries.
func (o *Orchestrator) summarizeChunk(ctx context.Context, c domain.Chunk, total int, query string) domain.PartialSummary {
	section := "(none)"
	if len(c.SectionPath) > 0 {
		section = strings.Join(c.SectionPath, " > ")
	}
	prompt := o.render(driven.PromptChunkSummary, c.Index+1, total, section, focus(query), c.Text)

	text, attempts, err := o.generate(ctx, prompt, o.settings.MapMaxTokens)
	if err != nil {
		status := statusFor(err)
		logger.Debug("chunk %d: %s after %d attempts: %v", c.Index, status, attempts, err)
		return domain.PartialSummary{ChunkIndex: c.Index, Status: status, Attempts: attempts, Err: err}
	}

	logger.Debug("chunk %d: summarised in %d attempts", c.Index, attempts)
	return domain.PartialSummary{ChunkIndex: c.Index, Text: text, Status: domain.StatusOK, Attempts: attempts}
}
