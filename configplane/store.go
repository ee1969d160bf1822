package configplane

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape the file store reads and writes, grounded
// on the teacher's loader.go Config struct but scoped to this domain.
type document struct {
	FeatureFlags []FeatureFlag                  `yaml:"feature_flags"`
	Backends     []BackendDescriptor            `yaml:"backends"`
	Models       []ModelExecutionConfig         `yaml:"models"`
	Routing      []RoutingRule                  `yaml:"routing"`
	Credentials  map[string]EncryptedCredential `yaml:"credentials"`
}

// Store is the admin-backed source of truth the cache refills from.
// The file-backed implementation below is the reference implementation;
// an HTTP-backed admin-API store would satisfy the same interface.
type Store interface {
	FeatureFlags() ([]FeatureFlag, error)
	FeatureFlag(name string) (FeatureFlag, bool, error)
	BackendDescriptors() ([]BackendDescriptor, error)
	BackendDescriptor(modelName string) (BackendDescriptor, bool, error)
	ModelExecutionConfigs() ([]ModelExecutionConfig, error)
	RoutingRules() ([]RoutingRule, error)
	Credential(name string) (EncryptedCredential, bool, error)
}

// FileStore loads the document from a YAML file on disk when it is built
// and again on each Reload; every read serves the in-memory document.
// Callers that want bounded-TTL reads go through Cache.
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// NewFileStore loads path immediately and returns a ready store.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file, replacing the in-memory document
// atomically under the write lock.
func (s *FileStore) Reload() error {
	return s.reload()
}

func (s *FileStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("configplane: read %s: %w", s.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("configplane: parse %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

func (s *FileStore) FeatureFlags() ([]FeatureFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FeatureFlag, len(s.doc.FeatureFlags))
	copy(out, s.doc.FeatureFlags)
	return out, nil
}

func (s *FileStore) FeatureFlag(name string) (FeatureFlag, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.doc.FeatureFlags {
		if f.Name == name {
			return f, true, nil
		}
	}
	return FeatureFlag{}, false, nil
}

func (s *FileStore) BackendDescriptors() ([]BackendDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BackendDescriptor, len(s.doc.Backends))
	copy(out, s.doc.Backends)
	return out, nil
}

func (s *FileStore) BackendDescriptor(modelName string) (BackendDescriptor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.doc.Backends {
		if b.ModelName == modelName {
			return b, true, nil
		}
	}
	return BackendDescriptor{}, false, nil
}

func (s *FileStore) ModelExecutionConfigs() ([]ModelExecutionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ModelExecutionConfig, len(s.doc.Models))
	copy(out, s.doc.Models)
	return out, nil
}

func (s *FileStore) RoutingRules() ([]RoutingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoutingRule, len(s.doc.Routing))
	copy(out, s.doc.Routing)
	return out, nil
}

func (s *FileStore) Credential(name string) (EncryptedCredential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.doc.Credentials[name]
	return cred, ok, nil
}
