// Package config describes storage trees as YAML documents.
//
// A descriptor names a storage kind, its capacity, its members (clustered,
// replicated) or tiers (cached), LRU retention and an optional key
// generator. Descriptors are plain data; package registry turns them into
// storages.
//
//	kind: cached
//	cache_on_read: true
//	subset:
//	  kind: lru
//	  capacity: 128
//	  retention: 30s
//	superset:
//	  kind: clustered
//	  keygen: {kind: uuid, dedup: true}
//	  members:
//	    - {kind: memory, capacity: 1000}
//	    - {kind: memory}            # no capacity: unbounded overflow member
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/shardstore/storage"
)

// Storage describes one storage node of a tree.
type Storage struct {
	Kind string `yaml:"kind"`

	// Capacity is the entry limit; omitted means unbounded.
	Capacity *int `yaml:"capacity,omitempty"`

	// Members of a clustered or replicated storage, in order.
	Members []Storage `yaml:"members,omitempty"`

	// Tiers and policy flags of a cached storage.
	Subset        *Storage `yaml:"subset,omitempty"`
	Superset      *Storage `yaml:"superset,omitempty"`
	CacheOnCreate bool     `yaml:"cache_on_create,omitempty"`
	CacheOnRead   bool     `yaml:"cache_on_read,omitempty"`
	CacheOnUpdate bool     `yaml:"cache_on_update,omitempty"`

	// LRU settings. Policy is "lru" (default) or "2q".
	Retention time.Duration `yaml:"retention,omitempty"`
	Policy    string        `yaml:"policy,omitempty"`

	KeyGen *KeyGen `yaml:"keygen,omitempty"`
}

// KeyGen describes a key generator: a kind tag plus size bounds whose
// meaning depends on the kind (value range, offset/ceiling, string length).
type KeyGen struct {
	Kind    string `yaml:"kind"`
	Min     int64  `yaml:"min,omitempty"`
	Max     int64  `yaml:"max,omitempty"`
	Retries int    `yaml:"retries,omitempty"`
	// Dedup retries candidates already present in the owning storage.
	Dedup bool `yaml:"dedup,omitempty"`
}

// Bound returns the capacity as understood by package storage.
func (s *Storage) Bound() int {
	if s.Capacity == nil {
		return storage.Unbounded
	}
	return *s.Capacity
}

// Capacity is a helper for building descriptors in code.
func Capacity(n int) *int { return &n }

// Validate checks structural rules that do not depend on registered kinds.
func (s *Storage) Validate() error {
	return s.validate("root")
}

func (s *Storage) validate(path string) error {
	if s.Kind == "" {
		return fmt.Errorf("%s: missing kind: %w", path, storage.ErrInvalidConfiguration)
	}
	if s.Capacity != nil && *s.Capacity < 0 {
		return fmt.Errorf("%s: negative capacity %d: %w", path, *s.Capacity, storage.ErrInvalidConfiguration)
	}
	if s.Retention < 0 {
		return fmt.Errorf("%s: negative retention %s: %w", path, s.Retention, storage.ErrInvalidConfiguration)
	}
	if s.KeyGen != nil && s.KeyGen.Kind == "" {
		return fmt.Errorf("%s: keygen without kind: %w", path, storage.ErrInvalidConfiguration)
	}
	var errs []error
	for i := range s.Members {
		errs = append(errs, s.Members[i].validate(fmt.Sprintf("%s.members[%d]", path, i)))
	}
	if s.Subset != nil {
		errs = append(errs, s.Subset.validate(path+".subset"))
	}
	if s.Superset != nil {
		errs = append(errs, s.Superset.validate(path+".superset"))
	}
	return errors.Join(errs...)
}

// Parse decodes and validates a YAML descriptor.
func Parse(data []byte) (Storage, error) {
	var s Storage
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Storage{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Storage{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// Load reads and parses a YAML descriptor file.
func Load(path string) (Storage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Storage{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes a descriptor back to YAML.
func Marshal(s Storage) ([]byte, error) {
	return yaml.Marshal(s)
}

// Default is the tree used when no descriptor is supplied: an LRU subset
// fronting a cluster of two bounded memory members and an unbounded tail.
func Default() Storage {
	return Storage{
		Kind:          "cached",
		CacheOnCreate: true,
		CacheOnRead:   true,
		CacheOnUpdate: true,
		Subset: &Storage{
			Kind:      "lru",
			Capacity:  Capacity(1024),
			Retention: time.Minute,
		},
		Superset: &Storage{
			Kind:   "clustered",
			KeyGen: &KeyGen{Kind: "uuid", Dedup: true},
			Members: []Storage{
				{Kind: "memory", Capacity: Capacity(10_000)},
				{Kind: "memory", Capacity: Capacity(10_000)},
				{Kind: "memory"},
			},
		},
	}
}
