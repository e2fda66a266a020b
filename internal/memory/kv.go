package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validKey rejects empty keys and keys containing any of the reserved
// characters (space, /, \, :, *, ?, |), per spec.md §4.7.5.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	return !strings.ContainsAny(key, " /\\:*?|")
}

func (s *store) kvPath(key string) string {
	return filepath.Join(s.root, dirKV, key+".json")
}

// loadKV mirrors disk into the in-memory cache on startup, per spec.md
// §4.7.5.
func (s *store) loadKV() error {
	entries, err := os.ReadDir(filepath.Join(s.root, dirKV))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory: read kv_store: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".json")
		var value any
		if err := readJSON(filepath.Join(s.root, dirKV, e.Name()), &value); err != nil {
			continue
		}
		s.kvCache[key] = value
	}
	return nil
}

// Set implements spec.md §4.7.5.
func (s *store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

func (s *store) setLocked(key string, value any) error {
	if !validKey(key) {
		return fmt.Errorf("memory: invalid key %q", key)
	}
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("memory: value for key %q is not serializable: %w", key, err)
	}
	if err := writeJSONAtomic(s.kvPath(key), value); err != nil {
		return err
	}
	s.kvCache[key] = value
	delete(s.kvDirty, key)
	return nil
}

func (s *store) Get(key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kvCache[key]
	return v, ok, nil
}

func (s *store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kvCache, key)
	delete(s.kvDirty, key)
	err := os.Remove(s.kvPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("memory: delete key %q: %w", key, err)
	}
	return nil
}

func (s *store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.kvCache[key]
	return ok
}

func (s *store) ListKeys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.kvCache {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// BatchSet validates every entry before writing any of them (all-or-nothing),
// per spec.md §4.7.5.
func (s *store) BatchSet(entries map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range entries {
		if !validKey(key) {
			return fmt.Errorf("memory: invalid key %q", key)
		}
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("memory: value for key %q is not serializable: %w", key, err)
		}
	}
	for key, value := range entries {
		if err := s.setLocked(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) BatchGet(keys []string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.kvCache[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *store) ClearKV() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.kvCache {
		if err := os.Remove(s.kvPath(k)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("memory: clear key %q: %w", k, err)
		}
	}
	s.kvCache = map[string]any{}
	s.kvDirty = map[string]bool{}
	return nil
}

func (s *store) KVStorageSize() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	entries, err := os.ReadDir(filepath.Join(s.root, dirKV))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("memory: read kv_store: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
