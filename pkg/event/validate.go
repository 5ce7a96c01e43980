// Package event holds the Nostr specifics of the signer: approval labels and
// checks on completed events.
package event

import (
	"github.com/nbd-wtf/go-nostr"

	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
)

// Validate checks that evt is a well-formed, complete event whose id is the
// canonical hash of its fields.
func Validate(evt *nostr.Event) error {
	if evt.Kind < 0 || evt.Kind > 65535 {
		return signerr.Validation("kind out of range", nil)
	}
	if !isHex(evt.PubKey, 32) {
		return signerr.Validation("pubkey is not 32 bytes of lowercase hex", nil)
	}
	if !isHex(evt.ID, 32) {
		return signerr.Validation("id is not 32 bytes of lowercase hex", nil)
	}
	if !isHex(evt.Sig, 64) {
		return signerr.Validation("sig is not 64 bytes of lowercase hex", nil)
	}
	if evt.CreatedAt <= 0 {
		return signerr.Validation("created_at is not set", nil)
	}
	for _, tag := range evt.Tags {
		if len(tag) == 0 {
			return signerr.Validation("empty tag", nil)
		}
	}
	if evt.GetID() != evt.ID {
		return signerr.Validation("id does not match event hash", nil)
	}
	return nil
}

// VerifySignature checks sig over id under pubkey (BIP-340).
func VerifySignature(evt *nostr.Event) error {
	ok, err := evt.CheckSignature()
	if err != nil {
		return signerr.Validation("signature check failed", err)
	}
	if !ok {
		return signerr.Validation("signature does not verify", nil)
	}
	return nil
}

func isHex(s string, n int) bool {
	if len(s) != 2*n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
