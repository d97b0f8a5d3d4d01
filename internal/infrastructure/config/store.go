package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
)

// Change actions reported by Store.Apply.
const (
	ActionReplaced       = "replaced"
	ActionReplacedInTask = "replaced_in_task"
	ActionAdded          = "added"
)

// Change records how one patch key was merged.
type Change struct {
	Key    string
	Action string
}

// Store owns the application config document on disk.
//
// It is the single writer of the file. Changes are persisted and never
// reconciled in place: the config watcher restarts the process when the
// file changes, so the running supervisor keeps the configuration it
// started with.
//
// Thread Safety: All methods are safe for concurrent use.
type Store struct {
	path string

	mu  sync.Mutex
	doc map[string]any
}

// OpenStore loads the document at path.
func OpenStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading app config: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}
	if _, ok := doc["config"].(map[string]any); !ok {
		return nil, ErrMissingConfigSection
	}
	return &Store{path: path, doc: doc}, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a typed copy of the current document.
func (s *Store) Snapshot() (*AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromDocument(s.doc)
}

// Apply merges patch into the "config" section and persists the result.
//
// Each key is merged in order of precedence:
//   - a key already present in "config" is replaced
//   - a key present in the task entry (or in any entry of the task list) is replaced there
//   - any other key is added to "config"
//
// The file is written atomically. The in-memory document is only updated
// when the write succeeds.
func (s *Store) Apply(patch map[string]any) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := deepCopy(s.doc)
	if err != nil {
		return nil, err
	}
	section := next["config"].(map[string]any)

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		value := patch[key]
		switch {
		case hasKey(section, key):
			section[key] = value
			changes = append(changes, Change{Key: key, Action: ActionReplaced})
		case replaceInTask(section["task"], key, value):
			changes = append(changes, Change{Key: key, Action: ActionReplacedInTask})
		default:
			section[key] = value
			changes = append(changes, Change{Key: key, Action: ActionAdded})
		}
	}

	if err := writeDocument(s.path, next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.doc = next
	return changes, nil
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// replaceInTask sets key on the task object, or on every task list entry
// that already has it. It reports whether anything was replaced.
func replaceInTask(task any, key string, value any) bool {
	switch t := task.(type) {
	case map[string]any:
		if hasKey(t, key) {
			t[key] = value
			return true
		}
	case []any:
		replaced := false
		for _, entry := range t {
			if m, ok := entry.(map[string]any); ok && hasKey(m, key) {
				m[key] = value
				replaced = true
			}
		}
		return replaced
	}
	return false
}

func deepCopy(doc map[string]any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding app config: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding app config: %w", err)
	}
	return out, nil
}

// writeDocument writes doc next to path and renames it into place.
func writeDocument(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding app config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // shared with sibling services
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}
