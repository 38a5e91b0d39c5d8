// Package switchboard keeps track of which organization a user is
// operating in and fans out change notifications to in-process
// subscribers. The dashboard cache and audit logging both react to
// organization switches without polling.
package switchboard

import (
	"sync"
	"time"
)

// Selection is the active organization slot for a user session.
type Selection struct {
	UserID  string    `json:"user_id"`
	OrgID   string    `json:"org_id"`
	OrgName string    `json:"org_name"`
	At      time.Time `json:"at"`
}

// Store holds the last selected organization per user and notifies
// subscribers on every switch. Last writer wins.
type Store struct {
	mu      sync.RWMutex
	current map[string]Selection
	subs    map[int]chan Selection
	nextID  int
}

// New creates an empty switchboard store.
func New() *Store {
	return &Store{
		current: make(map[string]Selection),
		subs:    make(map[int]chan Selection),
	}
}

// Select records the organization choice for a user and notifies
// subscribers. Notification is non-blocking: a subscriber that is not
// keeping up misses intermediate switches, never blocks the caller.
func (s *Store) Select(sel Selection) {
	if sel.At.IsZero() {
		sel.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[sel.UserID] = sel

	// Fan-out happens under the lock so a concurrent cancel cannot
	// close a channel mid-send. Sends never block.
	for _, ch := range s.subs {
		select {
		case ch <- sel:
		default:
		}
	}
}

// Current returns the active selection for a user, if any.
func (s *Store) Current(userID string) (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.current[userID]
	return sel, ok
}

// Clear drops the selection for a user, typically on logout.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, userID)
}

// Subscribe registers for switch notifications. The returned cancel
// function must be called to release the subscription.
func (s *Store) Subscribe(buffer int) (<-chan Selection, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Selection, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
