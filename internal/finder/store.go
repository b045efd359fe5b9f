package finder

import (
	"fmt"
	"slices"
)

// Policy selects how a full Store makes room for a new record.
type Policy int

const (
	// EvictAlways replaces the current minimum on every insert once the store is full,
	// even when the incoming record is smaller. The store then behaves as a rolling buffer.
	EvictAlways Policy = iota
	// EvictSmaller replaces the current minimum only when the incoming record is larger.
	EvictSmaller
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case EvictAlways:
		return "always"
	case EvictSmaller:
		return "smaller"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Store is a fixed-capacity collection of file records.
// It is not safe for concurrent use; the coordinator owns it.
type Store struct {
	capacity int
	policy   Policy
	entries  []FileRecord
}

// NewStore creates a store tracking at most capacity records.
// A non-positive capacity falls back to DefaultCount.
func NewStore(capacity int, policy Policy) *Store {
	if capacity <= 0 {
		capacity = DefaultCount
	}

	return &Store{
		capacity: capacity,
		policy:   policy,
		entries:  make([]FileRecord, 0, min(capacity, MaxCount)),
	}
}

// Insert adds a record, evicting the smallest entry when the store is full.
// Ties on the minimum go to the earliest slot.
func (s *Store) Insert(record FileRecord) {
	if len(s.entries) < s.capacity {
		s.entries = append(s.entries, record)

		return
	}

	minIdx := 0

	for i := 1; i < len(s.entries); i++ {
		if s.entries[i].SizeMB < s.entries[minIdx].SizeMB {
			minIdx = i
		}
	}

	if s.policy == EvictSmaller && record.SizeMB <= s.entries[minIdx].SizeMB {
		return
	}

	s.entries[minIdx] = record
}

// Sort orders entries by descending size. Equal sizes keep their relative order.
func (s *Store) Sort() {
	slices.SortStableFunc(s.entries, func(a, b FileRecord) int {
		switch {
		case a.SizeMB > b.SizeMB:
			return -1
		case a.SizeMB < b.SizeMB:
			return 1
		default:
			return 0
		}
	})
}

// List returns a copy of the entries in their current order.
func (s *Store) List() []FileRecord {
	return slices.Clone(s.entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Cap returns the capacity.
func (s *Store) Cap() int {
	return s.capacity
}
