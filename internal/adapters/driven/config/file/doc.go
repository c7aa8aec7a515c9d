// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.precis.
//
// Adapters:
//   - ConfigStore: TOML configuration with dot-notation keys
//   - PromptStore: user-editable prompt templates with embedded defaults
//   - PromptStore.Watch: reloads templates when files change (fsnotify)
package file
