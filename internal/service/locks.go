package service

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// TicketLocks serializes mutations per ticket id. The state machine and
// the breach sweep share one instance so that transitions and breach
// checks for the same ticket never interleave.
type TicketLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewTicketLocks creates the lock registry.
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{entries: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for the given ticket id.
func (l *TicketLocks) Lock(ticketID string) {
	l.mu.Lock()
	entry, ok := l.entries[ticketID]
	if !ok {
		entry = &lockEntry{}
		l.entries[ticketID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex and drops the entry once nobody waits.
func (l *TicketLocks) Unlock(ticketID string) {
	l.mu.Lock()
	entry, ok := l.entries[ticketID]
	if ok {
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, ticketID)
		}
	}
	l.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
