package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/researchbot/researchbot/internal/core/ports/driven"
	"github.com/researchbot/researchbot/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// verbPattern matches the fmt verbs a prompt template may use.
var verbPattern = regexp.MustCompile(`%[sd]`)

const promptReadme = "# researchbot prompts\n\n" +
	"These files control how researchbot talks to the language model.\n\n" +
	"- `answer_system.txt` is the system message sent with every question.\n" +
	"- `answer_user.txt` wraps the retrieved context (`%s`) and the question (`%s`).\n" +
	"- `summarise.txt` condenses one passage: `%d` is its source number, `%s` its text.\n\n" +
	"Edits apply on the next command. Keep the placeholders in the same order;\n" +
	"a file that drops or reorders them is ignored in favour of the built-in prompt.\n" +
	"Delete a file to restore its default.\n"

// PromptStore reads prompt templates from <dir>/<name>.txt. The directory
// is seeded with the built-in prompts the first time a prompt is loaded,
// so commands that never call the LLM touch nothing on disk.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore uses dir, or DefaultDir()/prompts when dir is empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		root, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locate prompt directory: %w", err)
		}
		dir = filepath.Join(root, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the template called name. Known prompts never fail: an
// unreadable, missing or placeholder-breaking file yields the built-in one.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := driven.DefaultPrompts[name]

	s.seedOnce.Do(func() { s.seedErr = s.seed() })
	if s.seedErr != nil {
		if known {
			return builtin, nil
		}
		return "", s.seedErr
	}

	s.mu.RLock()
	prompt, cached := s.cache[name]
	s.mu.RUnlock()
	if cached {
		return prompt, nil
	}

	raw, err := os.ReadFile(s.path(name))
	switch {
	case err != nil && known:
		prompt = builtin
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	default:
		prompt = strings.TrimSpace(string(raw))
	}
	if known && !samePlaceholders(builtin, prompt) {
		logger.Warn("Prompt %s.txt does not keep the placeholders %v; using the built-in prompt",
			name, verbPattern.FindAllString(builtin, -1))
		prompt = builtin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[name]; ok {
		return existing, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload forgets cached templates so the next Load rereads the files.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed writes any built-in prompt, and the README, that is not on disk yet.
// Existing files are never touched.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	files := map[string]string{filepath.Join(s.dir, "README.md"): promptReadme}
	for name, content := range driven.DefaultPrompts {
		files[s.path(name)] = content
	}
	for path, content := range files {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// samePlaceholders reports whether b uses the same verbs as a, in order.
func samePlaceholders(a, b string) bool {
	return slices.Equal(verbPattern.FindAllString(a, -1), verbPattern.FindAllString(b, -1))
}
