// Package engine is the conversation synchronization and notification engine.
//
// It reconciles polled conversation snapshots against the previous local
// state, decides when a notification fires, keeps a deterministically ordered
// view of conversations and groups message lists into day-bucketed timelines.
// Everything here except Store and Poller is a pure function.
package engine

import (
	"sync/atomic"

	"github.com/conectabot/inbox/models"
)

// Snapshot is an immutable, ordered set of conversations.
// A nil *Snapshot behaves as an empty one.
type Snapshot struct {
	items []models.ConversationSummary
	index map[string]int
}

// NewSnapshot copies items into a new Snapshot, keeping their order.
// Later duplicates of an id are dropped.
func NewSnapshot(items []models.ConversationSummary) *Snapshot {
	s := &Snapshot{
		items: make([]models.ConversationSummary, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, c := range items {
		if _, dup := s.index[c.ID]; dup {
			continue
		}
		s.index[c.ID] = len(s.items)
		s.items = append(s.items, c)
	}
	return s
}

// Get returns the conversation with the given id.
func (s *Snapshot) Get(id string) (models.ConversationSummary, bool) {
	if s == nil {
		return models.ConversationSummary{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return models.ConversationSummary{}, false
	}
	return s.items[i], true
}

// Len returns the number of conversations.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// List returns a copy of the conversations in display order.
func (s *Snapshot) List() []models.ConversationSummary {
	if s == nil {
		return []models.ConversationSummary{}
	}
	out := make([]models.ConversationSummary, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the conversation ids in display order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.items))
	for i, c := range s.items {
		ids[i] = c.ID
	}
	return ids
}

// With returns a new Snapshot where fn has been applied to conversation id.
// The receiver is left untouched. ok is false when id is absent.
func (s *Snapshot) With(id string, fn func(c *models.ConversationSummary)) (next *Snapshot, ok bool) {
	i, found := -1, false
	if s != nil {
		i, found = s.index[id]
	}
	if !found {
		return s, false
	}

	items := s.List()
	fn(&items[i])
	return &Snapshot{items: items, index: s.index}, true
}

// Map returns a new Snapshot with fn applied to every conversation.
// fn must not change ids.
func (s *Snapshot) Map(fn func(c *models.ConversationSummary)) *Snapshot {
	if s == nil {
		return NewSnapshot(nil)
	}
	items := s.List()
	for i := range items {
		fn(&items[i])
	}
	return &Snapshot{items: items, index: s.index}
}

// Without returns a new Snapshot without conversation id.
// ok is false when id is absent.
func (s *Snapshot) Without(id string) (next *Snapshot, ok bool) {
	if _, found := s.Get(id); !found {
		return s, false
	}
	items := make([]models.ConversationSummary, 0, s.Len()-1)
	for _, c := range s.items {
		if c.ID != id {
			items = append(items, c)
		}
	}
	return NewSnapshot(items), true
}

// Equal reports whether both snapshots show the same conversations in the
// same order. Markers are compared by id.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.Len() == 0 {
		return true
	}
	for i, a := range s.items {
		b := other.items[i]
		if markerID(a.Marker) != markerID(b.Marker) {
			return false
		}
		a.Marker, b.Marker = nil, nil
		if a != b {
			return false
		}
	}
	return true
}

// Store is the process-wide, most recently reconciled conversation state.
//
// Readers call Load and get a Snapshot that never changes under them.
// Writers publish a whole new Snapshot with Swap or CompareAndSwap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store holding an empty Snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewSnapshot(nil))
	return s
}

// Load returns the current Snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap publishes next and returns the previous Snapshot.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}

// CompareAndSwap publishes next only if the current Snapshot is still old.
func (s *Store) CompareAndSwap(old, next *Snapshot) bool {
	return s.current.CompareAndSwap(old, next)
}
