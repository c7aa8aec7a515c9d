package services

import (
	"sync"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// CharsPerToken is the divisor of the fallback token heuristic.
const CharsPerToken = 4

// HeuristicTokens estimates tokens as ceil(len(text)/4).
func HeuristicTokens(text string) int {
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// TokenCounter counts tokens per model, loading each tokenizer at most once.
// When a tokenizer cannot be loaded the counter falls back to HeuristicTokens
// and marks the count degraded. Safe for concurrent use.
type TokenCounter struct {
	loader  driven.TokenizerLoader
	entries sync.Map // domain.ModelRef -> *tokenizerEntry
}

type tokenizerEntry struct {
	once sync.Once
	tok  driven.Tokenizer
	err  error
}

// NewTokenCounter creates a counter. A nil loader always uses the heuristic.
func NewTokenCounter(loader driven.TokenizerLoader) *TokenCounter {
	return &TokenCounter{loader: loader}
}

// Count returns the token count of text for model.
func (c *TokenCounter) Count(text string, model domain.ModelRef) domain.TokenCount {
	e := c.entry(model)
	if e.tok == nil {
		return domain.TokenCount{Tokens: HeuristicTokens(text), Degraded: true}
	}
	return domain.TokenCount{Tokens: e.tok.Count(text)}
}

// For binds model and returns a plain counting function for the planner.
func (c *TokenCounter) For(model domain.ModelRef) func(string) int {
	e := c.entry(model)
	if e.tok == nil {
		return HeuristicTokens
	}
	return e.tok.Count
}

// Degraded reports whether counts for model come from the heuristic.
// The returned error is the load failure, if any.
func (c *TokenCounter) Degraded(model domain.ModelRef) (bool, error) {
	e := c.entry(model)
	return e.tok == nil, e.err
}

func (c *TokenCounter) entry(model domain.ModelRef) *tokenizerEntry {
	v, _ := c.entries.LoadOrStore(model, &tokenizerEntry{})
	e := v.(*tokenizerEntry)
	e.once.Do(func() {
		var err error
		if c.loader == nil {
			err = domain.ErrNotFound
		} else {
			e.tok, err = c.loader.Load(model)
		}
		if err != nil {
			e.tok = nil
			e.err = &domain.TokenizationError{Model: model, Err: err}
			logger.Warn("%v; falling back to %d chars per token", e.err, CharsPerToken)
		}
	})
	return e
}
