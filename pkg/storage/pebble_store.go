package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// Save persists a journal entry and indexes it by event id.
func (s *PebbleStore) Save(rec SignedEvent) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal signed event: %w", err)
	}

	key := eventKey(rec.SignedAt, rec.EventID)
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, data, nil); err != nil {
		return fmt.Errorf("failed to stage signed event: %w", err)
	}
	if err := batch.Set(eventIDKey(rec.EventID), key, nil); err != nil {
		return fmt.Errorf("failed to stage event index: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save signed event: %w", err)
	}
	return nil
}

// Recent loads up to limit entries, newest first
func (s *PebbleStore) Recent(limit int) ([]SignedEvent, error) {
	prefix := []byte(prefixEvent)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []SignedEvent
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var rec SignedEvent
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get loads the latest entry for an event id
func (s *PebbleStore) Get(eventID string) (SignedEvent, bool, error) {
	key, closer, err := s.db.Get(eventIDKey(eventID))
	if err == pebble.ErrNotFound {
		return SignedEvent{}, false, nil
	}
	if err != nil {
		return SignedEvent{}, false, fmt.Errorf("failed to get event index: %w", err)
	}
	primary := append([]byte(nil), key...)
	closer.Close()

	data, closer, err := s.db.Get(primary)
	if err == pebble.ErrNotFound {
		return SignedEvent{}, false, nil
	}
	if err != nil {
		return SignedEvent{}, false, fmt.Errorf("failed to get signed event: %w", err)
	}
	defer closer.Close()

	var rec SignedEvent
	if err := json.Unmarshal(data, &rec); err != nil {
		return SignedEvent{}, false, fmt.Errorf("failed to unmarshal signed event: %w", err)
	}
	return rec, true, nil
}

var _ Journal = (*PebbleStore)(nil)
