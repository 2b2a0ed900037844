// Package label keeps user-assigned names for addresses. A label takes
// priority over any symbol the debug info provides for the same address.
package label

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

// MaxLabelLen bounds the length of a label
const MaxLabelLen = 256

var ErrInvalidLabel = errors.New("invalid label")

// Entry an address and its label
type Entry struct {
	Addr uint64
	Name string
}

// Store address->label map, safe for concurrent use
type Store struct {
	mu     sync.RWMutex
	labels map[uint64]string
}

func NewStore() *Store {
	return &Store{labels: map[uint64]string{}}
}

// Get returns the label of addr
func (s *Store) Get(addr uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.labels[addr]
	return name, ok
}

// Set labels addr, replacing any previous label
func (s *Store) Set(addr uint64, name string) error {
	if name == "" || len(name) > MaxLabelLen {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[addr] = name
	return nil
}

// Delete removes the label of addr, reporting whether one existed
func (s *Store) Delete(addr uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.labels[addr]
	delete(s.labels, addr)
	return ok
}

// List returns all labels sorted by address
func (s *Store) List() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.labels))
	for addr, name := range s.labels {
		entries = append(entries, Entry{Addr: addr, Name: name})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Addr < entries[j].Addr })
	return entries
}

// file format of the label file, addresses are kept as hex strings
type file struct {
	Labels map[string]string `yaml:"labels"`
}

// Load replaces the labels with the content of the yaml file at path. A
// missing file leaves the store empty.
func (s *Store) Load(path string) error {
	dat, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read label file err: %v", err)
	}

	var f file
	if err := yaml.Unmarshal(dat, &f); err != nil {
		return fmt.Errorf("parse label file %s err: %v", path, err)
	}

	labels := make(map[uint64]string, len(f.Labels))
	for k, v := range f.Labels {
		addr, err := strconv.ParseUint(k, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q in %s", k, path)
		}
		if v == "" || len(v) > MaxLabelLen {
			return fmt.Errorf("%w: %q at %s in %s", ErrInvalidLabel, v, k, path)
		}
		labels[addr] = v
	}

	s.mu.Lock()
	s.labels = labels
	s.mu.Unlock()
	return nil
}

// Save writes the labels to path
func (s *Store) Save(path string) error {
	f := file{Labels: map[string]string{}}
	for _, e := range s.List() {
		f.Labels[fmt.Sprintf("%#x", e.Addr)] = e.Name
	}

	dat, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, dat, 0o644)
}
