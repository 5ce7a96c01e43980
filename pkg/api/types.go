package api

import (
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"

	"github.com/uhyunpark/nostr-signerd/pkg/storage"
)

// API types for the REST endpoints and WebSocket messages

// ==============================
// REST Types
// ==============================

// PubKeyResponse is returned by GET /api/v1/nostr/pubkey
type PubKeyResponse struct {
	PubKey string `json:"pubkey"`
}

// IdentityStatus is returned by the identity endpoints
type IdentityStatus struct {
	State string `json:"state"` // "UNRESOLVED" or "RESOLVED"
}

// JournalResponse lists recently signed events, newest first
type JournalResponse struct {
	Entries []storage.SignedEvent `json:"entries"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"` // signerr kind, e.g. "TIMEOUT"
}

// ==============================
// WebSocket Types
// ==============================

// WSRequest is a NIP-07 call from the page.
// Methods: "getPublicKey", "signEvent", "getRelays"
type WSRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SignEventParams are the params of "signEvent"
type SignEventParams struct {
	Event nostr.Event `json:"event"`
}

// WSResponse answers one WSRequest. Exactly one of Result and Error is set.
type WSResponse struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  *WSError        `json:"error,omitempty"`
}

type WSError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WSNotice is pushed to every connected page
type WSNotice struct {
	Type string `json:"type"` // "identityReset"
}
