// Package signing turns unsigned Nostr events into signed ones using a
// coordinator group as the key holder.
package signing

import (
	"context"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/event"
	"github.com/uhyunpark/nostr-signerd/pkg/identity"
	"github.com/uhyunpark/nostr-signerd/pkg/storage"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

// SignatureRequester obtains a BIP-340 signature over a digest from a group.
// *task.Poller implements it.
type SignatureRequester interface {
	RequestSignature(ctx context.Context, digestHex, groupIDBase64, label string) (string, error)
}

// Recorder receives every event the signer produced a signature for.
type Recorder interface {
	Save(rec storage.SignedEvent) error
}

type Signer struct {
	requester SignatureRequester
	clock     util.Clock
	journal   Recorder
	logger    *zap.SugaredLogger
}

// NewSigner builds a signer. journal may be nil.
func NewSigner(requester SignatureRequester, clock util.Clock, journal Recorder, logger *zap.SugaredLogger) *Signer {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Signer{requester: requester, clock: clock, journal: journal, logger: util.OrNop(logger)}
}

// SignEvent stamps created_at, pubkey and id on a copy of unsigned, asks
// the group for a signature and returns the signed copy.
//
// Any id or sig already present is discarded. Post-signature validation
// failures are logged and the event is returned anyway.
func (s *Signer) SignEvent(ctx context.Context, unsigned nostr.Event, groupIDBase64 string) (nostr.Event, error) {
	evt := unsigned
	evt.ID = ""
	evt.Sig = ""
	if evt.Tags == nil {
		evt.Tags = nostr.Tags{}
	}
	evt.CreatedAt = nostr.Timestamp(s.clock.Now().Unix())

	pubkey, err := identity.FormatPublicKey(groupIDBase64)
	if err != nil {
		return nostr.Event{}, err
	}
	evt.PubKey = pubkey
	evt.ID = evt.GetID()
	s.logger.Infow("event_prepared", "event_id", evt.ID, "kind", evt.Kind, "pubkey", evt.PubKey)

	label := event.TaskLabel(&evt)
	sig, err := s.requester.RequestSignature(ctx, evt.ID, groupIDBase64, label)
	if err != nil {
		s.logger.Warnw("sign_failed", "event_id", evt.ID, "error", err)
		return nostr.Event{}, err
	}
	evt.Sig = sig
	s.logger.Infow("event_signed", "event_id", evt.ID, "sig", evt.Sig)

	warnings := s.check(&evt)
	s.record(evt, groupIDBase64, label, warnings)
	return evt, nil
}

// check runs the structural and signature checks and returns their failures.
func (s *Signer) check(evt *nostr.Event) []string {
	var warnings []string
	if err := event.Validate(evt); err != nil {
		s.logger.Warnw("event_invalid", "event_id", evt.ID, "error", err)
		warnings = append(warnings, err.Error())
	}
	if err := event.VerifySignature(evt); err != nil {
		s.logger.Warnw("signature_invalid", "event_id", evt.ID, "error", err)
		warnings = append(warnings, err.Error())
	}
	return warnings
}

func (s *Signer) record(evt nostr.Event, groupID, label string, warnings []string) {
	if s.journal == nil {
		return
	}
	rec := storage.SignedEvent{
		RecordID:  uuid.NewString(),
		EventID:   evt.ID,
		Kind:      evt.Kind,
		PubKey:    evt.PubKey,
		GroupID:   groupID,
		TaskLabel: label,
		Sig:       evt.Sig,
		CreatedAt: int64(evt.CreatedAt),
		SignedAt:  s.clock.Now(),
		Warnings:  warnings,
	}
	if err := s.journal.Save(rec); err != nil {
		s.logger.Errorw("journal_save_failed", "event_id", evt.ID, "error", err)
	}
}
