package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// IDSet remembers note ids on this client, such as liked or reported notes.
type IDSet interface {
	Has(id int64) bool
	Add(id int64) error
	Remove(id int64) error
	IDs() []int64
}

// MemorySet is an IDSet that lives only as long as the process.
type MemorySet struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func NewMemorySet(ids ...int64) *MemorySet {
	set := &MemorySet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

func (s *MemorySet) Has(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *MemorySet) Add(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	return nil
}

func (s *MemorySet) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
	return nil
}

func (s *MemorySet) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.ids)
}

// StateFile persists the liked and reported sets as one JSON document.
type StateFile struct {
	mu       sync.Mutex
	path     string
	liked    map[int64]struct{}
	reported map[int64]struct{}
}

type stateDocument struct {
	LikedNotes    []int64 `json:"likedNotes"`
	ReportedNotes []int64 `json:"reportedNotes"`
}

// OpenStateFile loads path, treating a missing file as empty state.
func OpenStateFile(path string) (*StateFile, error) {
	state := &StateFile{
		path:     path,
		liked:    map[int64]struct{}{},
		reported: map[int64]struct{}{},
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed: read state file: %w", err)
	}
	var document stateDocument
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("feed: parse state file %s: %w", path, err)
	}
	for _, id := range document.LikedNotes {
		state.liked[id] = struct{}{}
	}
	for _, id := range document.ReportedNotes {
		state.reported[id] = struct{}{}
	}
	return state, nil
}

// Liked returns the persisted liked set.
func (f *StateFile) Liked() IDSet {
	return &fileSet{state: f, ids: f.liked}
}

// Reported returns the persisted reported set.
func (f *StateFile) Reported() IDSet {
	return &fileSet{state: f, ids: f.reported}
}

func (f *StateFile) saveLocked() error {
	document := stateDocument{LikedNotes: sortedIDs(f.liked), ReportedNotes: sortedIDs(f.reported)}
	encoded, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("feed: create state directory: %w", err)
	}
	temporary := f.path + ".tmp"
	if err := os.WriteFile(temporary, encoded, 0o600); err != nil {
		return fmt.Errorf("feed: write state file: %w", err)
	}
	if err := os.Rename(temporary, f.path); err != nil {
		return fmt.Errorf("feed: replace state file: %w", err)
	}
	return nil
}

type fileSet struct {
	state *StateFile
	ids   map[int64]struct{}
}

func (s *fileSet) Has(id int64) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *fileSet) Add(id int64) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return nil
	}
	s.ids[id] = struct{}{}
	return s.state.saveLocked()
}

func (s *fileSet) Remove(id int64) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return nil
	}
	delete(s.ids, id)
	return s.state.saveLocked()
}

func (s *fileSet) IDs() []int64 {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return sortedIDs(s.ids)
}

func sortedIDs(ids map[int64]struct{}) []int64 {
	result := make([]int64, 0, len(ids))
	for id := range ids {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
