package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return the default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptChunkSummary summarises one chunk.
	// Placeholders: %d (chunk number), %d (chunk total), %s (section), %s (focus), %s (content).
	PromptChunkSummary = "chunk_summary"

	// PromptCombineSummaries merges a batch of consecutive partial summaries.
	// Placeholders: %s (summaries).
	PromptCombineSummaries = "combine_summaries"

	// PromptFinalSummary produces the final answer from all partial summaries.
	// Placeholders: %s (focus), %s (summaries).
	PromptFinalSummary = "final_summary"

	// PromptDirectSummary summarises a document small enough for one call.
	// Placeholders: %s (focus), %s (content).
	PromptDirectSummary = "direct_summary"
)

var defaultPrompts = map[string]string{
	PromptChunkSummary: `You are summarising part %d of %d of a longer document.
Section: %s
Focus: %s

Write a dense, factual summary of this part. Keep names, numbers and
conclusions. Do not mention that this is a part of a document.

Content:
%s

Summary:`,

	PromptCombineSummaries: `The following are summaries of consecutive parts of one document,
in order. Merge them into a single summary that keeps the order of
events and every important fact. Remove repetition.

%s

Combined summary:`,

	PromptFinalSummary: `Below are summaries of consecutive parts of one document, in order.
Write the final summary of the whole document.
Focus: %s

Some parts may be marked as unavailable; do not speculate about them.

%s

Final summary:`,

	PromptDirectSummary: `Summarise the following document.
Focus: %s

Document:
%s

Summary:`,
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// PromptNames returns every well-known prompt name.
func PromptNames() []string {
	return []string{
		PromptChunkSummary,
		PromptCombineSummaries,
		PromptFinalSummary,
		PromptDirectSummary,
	}
}
