package storage

import "sync"

// InMemoryJournal keeps the most recent entries of this process only.
type InMemoryJournal struct {
	mu      sync.Mutex
	entries []SignedEvent
	limit   int
}

// NewInMemoryJournal keeps at most limit entries; older ones are dropped.
func NewInMemoryJournal(limit int) *InMemoryJournal {
	if limit <= 0 {
		limit = 1000
	}
	return &InMemoryJournal{limit: limit}
}

func (j *InMemoryJournal) Save(rec SignedEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, rec)
	if over := len(j.entries) - j.limit; over > 0 {
		j.entries = append([]SignedEvent(nil), j.entries[over:]...)
	}
	return nil
}

func (j *InMemoryJournal) Recent(limit int) ([]SignedEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []SignedEvent
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}

func (j *InMemoryJournal) Get(eventID string) (SignedEvent, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].EventID == eventID {
			return j.entries[i], true, nil
		}
	}
	return SignedEvent{}, false, nil
}

func (j *InMemoryJournal) Close() error { return nil }

var _ Journal = (*InMemoryJournal)(nil)
