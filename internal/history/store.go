package history

import (
	"sort"
	"sync"

	"github.com/sawpanic/riskgate/internal/domain"
)

// Store is the in-memory, date-keyed history log: an index by date plus a sorted
// key list. At most one entry per date; merging an existing date replaces it.
type Store struct {
	mu    sync.RWMutex
	index map[domain.Date]domain.HistoryEntry
	dates []domain.Date
}

// New creates a store and merges the given entries in order (last write wins)
func New(entries ...domain.HistoryEntry) *Store {
	s := &Store{index: make(map[domain.Date]domain.HistoryEntry, len(entries))}
	for _, e := range entries {
		s.Merge(e)
	}
	return s
}

// Merge inserts or replaces the entry for its date. Returns true when it replaced one.
func (s *Store) Merge(entry domain.HistoryEntry) bool {
	if entry.Date == "" && entry.Input != nil {
		entry.Date = entry.Input.Date
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[entry.Date]; exists {
		s.index[entry.Date] = entry
		return true
	}

	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= entry.Date })
	s.dates = append(s.dates, "")
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = entry.Date
	s.index[entry.Date] = entry
	return false
}

// Get returns the entry for a date
func (s *Store) Get(d domain.Date) (domain.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[d]
	return e, ok
}

// Len returns the number of stored dates
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dates)
}

// Dates returns all dates ascending
func (s *Store) Dates() []domain.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Date(nil), s.dates...)
}

// Entries returns every entry ascending by date
func (s *Store) Entries() []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slice(0, len(s.dates))
}

// EntriesThrough returns entries with date <= d, ascending
func (s *Store) EntriesThrough(d domain.Date) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slice(0, s.upper(d))
}

// Range returns entries with from <= date <= to, ascending
func (s *Store) Range(from, to domain.Date) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= from })
	hi := s.upper(to)
	if hi < lo {
		return nil
	}
	return s.slice(lo, hi)
}

// Latest returns the newest entry
func (s *Store) Latest() (domain.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.dates) == 0 {
		return domain.HistoryEntry{}, false
	}
	return s.index[s.dates[len(s.dates)-1]], true
}

// LatestBefore returns the newest entry strictly earlier than d
func (s *Store) LatestBefore(d domain.Date) (domain.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= d })
	if i == 0 {
		return domain.HistoryEntry{}, false
	}
	return s.index[s.dates[i-1]], true
}

// upper is the index of the first date strictly after d
func (s *Store) upper(d domain.Date) int {
	return sort.Search(len(s.dates), func(i int) bool { return s.dates[i] > d })
}

func (s *Store) slice(lo, hi int) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, hi-lo)
	for _, d := range s.dates[lo:hi] {
		out = append(out, s.index[d])
	}
	return out
}
