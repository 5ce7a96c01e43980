// Package storage keeps a journal of events the signer has produced
// signatures for.
package storage

import "time"

// SignedEvent is one journal entry.
type SignedEvent struct {
	RecordID  string    `json:"recordId"`
	EventID   string    `json:"eventId"`
	Kind      int       `json:"kind"`
	PubKey    string    `json:"pubkey"`
	GroupID   string    `json:"groupId"`
	TaskLabel string    `json:"taskLabel"`
	Sig       string    `json:"sig"`
	CreatedAt int64     `json:"createdAt"`
	SignedAt  time.Time `json:"signedAt"`
	// Warnings lists post-signature checks that failed.
	Warnings []string `json:"warnings,omitempty"`
}

// Journal stores signed events. Recent returns newest first.
type Journal interface {
	Save(rec SignedEvent) error
	Recent(limit int) ([]SignedEvent, error)
	Get(eventID string) (SignedEvent, bool, error)
	Close() error
}
