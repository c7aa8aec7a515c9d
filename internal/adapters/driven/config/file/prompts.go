package file

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to the
// built-in templates.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// verbRe matches fmt verbs, skipping escaped percent signs.
var verbRe = regexp.MustCompile(`%[-+# 0]*[0-9]*(?:\.[0-9]+)?[a-zA-Z%]`)

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.precis/prompts/.
//
// The constructor does not perform any I/O.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".precis", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A missing file falls back to the built-in template. A file whose
// placeholders differ from the built-in template is rejected with
// ErrInvalidInput so callers never render a broken prompt.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := driven.DefaultPrompt(name)

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// No lock held during I/O.
	prompt, err := s.loadFromFile(name)
	switch {
	case err != nil && known:
		prompt = fallback
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case known:
		if err := checkPlaceholders(name, prompt, fallback); err != nil {
			return "", err
		}
	}

	// Another goroutine may have loaded it first; keep theirs.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func checkPlaceholders(name, prompt, fallback string) error {
	got := verbs(prompt)
	want := verbs(fallback)
	if strings.Join(got, "") != strings.Join(want, "") {
		return fmt.Errorf("%w: prompt %q has placeholders %v, want %v",
			domain.ErrInvalidInput, name, got, want)
	}
	return nil
}

func verbs(tmpl string) []string {
	var out []string
	for _, v := range verbRe.FindAllString(tmpl, -1) {
		if v != "%%" {
			out = append(out, v)
		}
	}
	return out
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Existing files are user edits and are never overwritten.
	for _, name := range driven.PromptNames() {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			content, _ := driven.DefaultPrompt(name)
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# precis prompts

These templates drive every LLM call precis makes.

## Files

- ` + "`chunk_summary.txt`" + ` - summarises one chunk (map phase)
- ` + "`combine_summaries.txt`" + ` - merges consecutive summaries when they exceed the context budget
- ` + "`final_summary.txt`" + ` - final pass, focused by the query
- ` + "`direct_summary.txt`" + ` - whole-document summary for small inputs

## Customisation

Edit any file; changes are picked up while ` + "`precis mcp serve`" + ` is running
and on the next command otherwise. Delete a file to restore the default.

Templates use Go fmt placeholders (` + "`%s`" + `, ` + "`%d`" + `). Keep the same
placeholders in the same order; a template that changes them is ignored and
the built-in version is used instead.
`
	return os.WriteFile(path, []byte(content), 0600)
}
