// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LLMService: Generates chunk summaries and reductions
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TokenizerLoader: Model tokenizers. Without it, token counts use a
//     character heuristic and are marked degraded.
//   - ResultCache / CacheStore: Summary caching. Without it, every run calls the LLM.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
