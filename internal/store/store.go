// Package store provides the history of closed toasts.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
)

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates entries were added.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeClear indicates all entries were cleared.
	ChangeTypeClear
	// ChangeTypePrune indicates entries were pruned.
	ChangeTypePrune
	// ChangeTypeReload indicates the store was reloaded from persistence.
	ChangeTypeReload
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type  ChangeType
	Count int
}

// FilterOptions specifies criteria for filtering history.
type FilterOptions struct {
	Since  time.Duration     // Only entries closed within this window (0=all)
	Kind   model.Kind        // Exact kind match ("" = any)
	Reason model.CloseReason // Exact close reason match ("" = any)
	Limit  int               // Maximum results (0=unlimited)
}

// Store holds closed toasts, newest first on read. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
	index   map[string]int // id -> slice index

	persistence Persistence
	now         func() time.Time

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a new Store.
// If persistence is not nil, it will be used to persist entries.
func NewStore(persistence Persistence) *Store {
	return &Store{
		index:       make(map[string]int),
		persistence: persistence,
		now:         time.Now,
	}
}

// Add records a single entry. Entries whose id is already present are skipped.
// An entry that fails to persist is not recorded.
func (s *Store) Add(e model.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, exists := s.index[e.ID]; exists {
		return nil
	}

	if s.persistence != nil {
		if err := s.persistence.Append(e); err != nil {
			return err
		}
	}

	s.index[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: 1})
	return nil
}

// AddBatch records multiple entries, skipping invalid ones and duplicates.
// Nothing is recorded when the batch fails to persist.
func (s *Store) AddBatch(es []model.HistoryEntry) error {
	if len(es) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	toAdd := make([]model.HistoryEntry, 0, len(es))
	seen := make(map[string]bool, len(es))
	for _, e := range es {
		if e.Validate() != nil || seen[e.ID] {
			continue
		}
		if _, exists := s.index[e.ID]; exists {
			continue
		}
		seen[e.ID] = true
		toAdd = append(toAdd, e)
	}
	if len(toAdd) == 0 {
		return nil
	}

	if s.persistence != nil {
		if err := s.persistence.AppendBatch(toAdd); err != nil {
			return err
		}
	}

	for _, e := range toAdd {
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: len(toAdd)})
	return nil
}

// All returns every entry, most recently closed first.
func (s *Store) All() []model.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.HistoryEntry, len(s.entries))
	copy(result, s.entries)
	sortNewestFirst(result)
	return result
}

// Filter returns entries matching the criteria, most recently closed first.
func (s *Store) Filter(opts FilterOptions) []model.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff int64
	if opts.Since > 0 {
		cutoff = s.now().Add(-opts.Since).UnixMilli()
	}

	var result []model.HistoryEntry
	for _, e := range s.entries {
		if cutoff > 0 && e.ClosedAt < cutoff {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Reason != "" && e.Reason != opts.Reason {
			continue
		}
		result = append(result, e)
	}

	sortNewestFirst(result)

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (model.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return model.HistoryEntry{}, false
	}
	return s.entries[idx], true
}

// Count returns the total number of entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Prune removes entries closed more than olderThan ago (0 disables the age
// check) and then all but the keep most recent (0 keeps everything).
// It returns the number of entries removed.
func (s *Store) Prune(olderThan time.Duration, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	sorted := make([]model.HistoryEntry, len(s.entries))
	copy(sorted, s.entries)
	sortNewestFirst(sorted)

	var cutoff int64
	if olderThan > 0 {
		cutoff = s.now().Add(-olderThan).UnixMilli()
	}

	kept := sorted[:0]
	for _, e := range sorted {
		if cutoff > 0 && e.ClosedAt < cutoff {
			continue
		}
		if keep > 0 && len(kept) >= keep {
			continue
		}
		kept = append(kept, e)
	}

	removed := len(s.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	// Stored oldest first, as appended
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	s.replaceLocked(kept)

	if s.persistence != nil {
		if err := s.persistence.Rewrite(s.entries); err != nil {
			return removed, err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypePrune, Count: removed})
	return removed, nil
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	count := len(s.entries)
	s.replaceLocked(nil)

	if s.persistence != nil {
		if err := s.persistence.Clear(); err != nil {
			return err
		}
	}

	s.notifyChange(ChangeEvent{Type: ChangeTypeClear, Count: count})
	return nil
}

// Hydrate replaces the in-memory entries with what persistence holds. The file
// is authoritative, so changes made by other processes are picked up.
func (s *Store) Hydrate() error {
	if s.persistence == nil {
		return nil
	}

	entries, err := s.persistence.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	unique := make([]model.HistoryEntry, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		unique = append(unique, e)
	}
	s.replaceLocked(unique)

	s.notifyChange(ChangeEvent{Type: ChangeTypeReload, Count: len(unique)})
	return nil
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

func (s *Store) replaceLocked(entries []model.HistoryEntry) {
	s.entries = entries
	s.index = make(map[string]int, len(entries))
	for i, e := range entries {
		s.index[e.ID] = i
	}
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// sortNewestFirst orders by close time, then id, both descending.
func sortNewestFirst(es []model.HistoryEntry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].ClosedAt != es[j].ClosedAt {
			return es[i].ClosedAt > es[j].ClosedAt
		}
		return es[i].ID > es[j].ID
	})
}
