// Package tokenizer provides model tokenizers backed by tiktoken.
//
// OpenAI models use their exact encoding. Other providers do not publish a
// tiktoken-compatible vocabulary, so their counts are approximated with
// cl100k_base, which tracks Claude, Gemini and Llama counts closely enough
// for chunk budgeting.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.TokenizerLoader = (*Loader)(nil)

// ApproximateEncoding is used for providers without a native encoding.
const ApproximateEncoding = "cl100k_base"

// Loader resolves tiktoken encodings. Encodings are shared between models
// that map to the same vocabulary.
type Loader struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewLoader creates a tiktoken loader.
// Vocabulary files are fetched on first use and cached in TIKTOKEN_CACHE_DIR
// when that variable is set.
func NewLoader() *Loader {
	return &Loader{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// Load returns the tokenizer for model.
func (l *Loader) Load(model domain.ModelRef) (driven.Tokenizer, error) {
	switch model.Provider {
	case domain.AIProviderOpenAI:
		enc, err := tiktoken.EncodingForModel(model.Model)
		if err == nil {
			return &Tokenizer{enc: enc}, nil
		}
		// Unknown or fine-tuned model names fall back to the approximation.
		return l.byName(ApproximateEncoding)
	case domain.AIProviderAnthropic, domain.AIProviderGemini, domain.AIProviderOllama:
		return l.byName(ApproximateEncoding)
	default:
		return nil, fmt.Errorf("%w: no tokenizer for provider %q", domain.ErrUnsupportedType, model.Provider)
	}
}

func (l *Loader) byName(name string) (driven.Tokenizer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if enc, ok := l.encodings[name]; ok {
		return &Tokenizer{enc: enc}, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	l.encodings[name] = enc
	return &Tokenizer{enc: enc}, nil
}

// Tokenizer counts tokens with a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// allSpecial lets special token text be counted instead of rejected.
var allSpecial = []string{"all"}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, allSpecial, nil))
}
