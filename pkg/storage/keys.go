package storage

import (
	"fmt"
	"time"
)

// Key schema:
//   ev:<signedAt unix nanos, 20 digits>:<eventID> → SignedEvent (JSON)
//   evid:<eventID>                               → ev: key of the latest entry
const (
	prefixEvent   = "ev:"
	prefixEventID = "evid:"
)

// eventKey is zero-padded so keys sort by signing time.
func eventKey(signedAt time.Time, eventID string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixEvent, signedAt.UnixNano(), eventID))
}

func eventIDKey(eventID string) []byte {
	return []byte(prefixEventID + eventID)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
