package kv

import (
	"fmt"
	"sync"

	"golang-oscnode/internal/port"

	"gopkg.in/yaml.v3"
)

// FileStore is a KeyValueStore kept in a YAML document, one mapping per namespace.
// Every PutUint rewrites the whole document through the FileManager port.
type FileStore struct {
	mu        sync.Mutex
	path      string
	namespace string
	files     port.FileManager
	doc       map[string]map[string]uint32
}

// Ensure FileStore implements the KeyValueStore port
var _ port.KeyValueStore = (*FileStore)(nil)

// OpenFileStore loads the document at path, if present.
func OpenFileStore(path, namespace string, files port.FileManager) (*FileStore, error) {
	s := &FileStore{
		path:      path,
		namespace: namespace,
		files:     files,
		doc:       make(map[string]map[string]uint32),
	}

	if !files.FileExists(path) {
		return s, nil
	}

	data, err := files.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse preference file %s: %w", path, err)
	}
	if s.doc == nil {
		s.doc = make(map[string]map[string]uint32)
	}

	return s, nil
}

// GetUint returns the stored value and whether the key was present.
func (s *FileStore) GetUint(key string) (uint32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.doc[s.namespace][key]
	return v, ok, nil
}

// PutUint stores a value and flushes the document.
func (s *FileStore) PutUint(key string, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.doc[s.namespace]
	if !ok {
		ns = make(map[string]uint32)
		s.doc[s.namespace] = ns
	}
	prev, existed := ns[key]
	ns[key] = value

	data, err := yaml.Marshal(s.doc)
	if err == nil {
		err = s.files.WriteFile(s.path, data, 0600)
	}
	if err != nil {
		if existed {
			ns[key] = prev
		} else {
			delete(ns, key)
		}
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; every write is already flushed.
func (s *FileStore) Close() error {
	return nil
}
