// Package registry persists contexts registered at runtime.
//
// A registry is a flat, ordered list of entries. Each entry binds a URN to
// a document of the form {"@context": ...}. Stores always read and write
// the whole list at once.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"sourcery.dny.nu/ldforge/internal/json"
)

// Entry is a single registered context document. It serialises as the
// pair [urn, document].
type Entry struct {
	URN      string
	Document json.RawMessage
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.URN, e.Document})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("registry entry must be a [urn, document] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.URN); err != nil {
		return fmt.Errorf("registry entry urn: %w", err)
	}
	e.Document = pair[1]
	return nil
}

// Store loads and saves the complete list of entries.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Memory is a [Store] that keeps entries in memory. The zero value is
// ready to use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory(entries ...Entry) *Memory {
	return &Memory{entries: slices.Clone(entries)}
}

func (m *Memory) Load(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries), nil
}

func (m *Memory) Save(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = slices.Clone(entries)
	return nil
}

func decode(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	return entries, nil
}

func encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	return data, nil
}
