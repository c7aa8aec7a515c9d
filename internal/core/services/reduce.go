package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// reduceItem is a summary covering chunks first..last inclusive.
type reduceItem struct {
	first, last int
	text        string
}

func (r reduceItem) label() string {
	if r.first == r.last {
		return fmt.Sprintf("[Part %d]", r.first+1)
	}
	return fmt.Sprintf("[Parts %d-%d]", r.first+1, r.last+1)
}

func joinItems(items []reduceItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(it.label())
		b.WriteByte('\n')
		b.WriteString(it.text)
	}
	return b.String()
}

// reduce combines partials in chunk order. While the joined summaries exceed
// the context budget they are merged in consecutive batches; the final pass
// applies the query.
func (o *Orchestrator) reduce(ctx context.Context, partials []domain.PartialSummary, query string) (string, error) {
	sorted := slices.Clone(partials)
	slices.SortFunc(sorted, func(a, b domain.PartialSummary) int {
		return a.ChunkIndex - b.ChunkIndex
	})

	items := make([]reduceItem, len(sorted))
	for i, p := range sorted {
		text := p.Text
		if !p.OK() {
			text = fmt.Sprintf("(unavailable: summarisation %s)", p.Status)
		}
		items[i] = reduceItem{first: p.ChunkIndex, last: p.ChunkIndex, text: text}
	}

	for level := 1; len(items) > 1 && o.count(joinItems(items)) > o.settings.ContextBudget; level++ {
		batches := o.batches(items)
		logger.Debug("reduce level %d: %d summaries in %d batches", level, len(items), len(batches))

		var err error
		if items, err = o.combine(ctx, batches); err != nil {
			return "", err
		}
	}

	prompt := o.render(driven.PromptFinalSummary, focus(query), joinItems(items))
	text, _, err := o.generate(ctx, prompt, o.settings.ReduceMaxTokens)
	return text, err
}

// batches groups consecutive items so each batch fits the context budget.
// Every batch except possibly the last holds at least two items, so each
// level strictly shrinks the list.
func (o *Orchestrator) batches(items []reduceItem) [][]reduceItem {
	var out [][]reduceItem
	for i := 0; i < len(items); {
		j := i + 1
		for j < len(items) && (j-i < 2 || o.count(joinItems(items[i:j+1])) <= o.settings.ContextBudget) {
			j++
		}
		out = append(out, items[i:j])
		i = j
	}
	return out
}

// combine merges each batch into one item, preserving order.
func (o *Orchestrator) combine(ctx context.Context, batches [][]reduceItem) ([]reduceItem, error) {
	out := make([]reduceItem, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.settings.Concurrency)
	for i, batch := range batches {
		if len(batch) == 1 {
			out[i] = batch[0]
			continue
		}
		g.Go(func() error {
			prompt := o.render(driven.PromptCombineSummaries, joinItems(batch))
			text, _, err := o.generate(gctx, prompt, o.settings.ReduceMaxTokens)
			if err != nil {
				return fmt.Errorf("combine %s: %w", batch[0].label(), err)
			}
			out[i] = reduceItem{first: batch[0].first, last: batch[len(batch)-1].last, text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
