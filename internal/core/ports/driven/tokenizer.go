package driven

import "github.com/custodia-labs/precis/internal/core/domain"

// Tokenizer counts tokens the way a specific model does.
// Implementations must be safe for concurrent use once loaded.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}

// TokenizerLoader resolves the tokenizer for a model.
// Load may be slow (vocabulary download or parse) and is called at most
// once per model by the token counter.
type TokenizerLoader interface {
	Load(model domain.ModelRef) (Tokenizer, error)
}
