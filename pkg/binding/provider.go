// Package binding exposes the signer under the NIP-07 method names a page
// expects: getPublicKey, signEvent and getRelays.
package binding

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/identity"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

// State of a Provider's identity.
type State int

const (
	Unresolved State = iota
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "RESOLVED"
	}
	return "UNRESOLVED"
}

// Relay policy for one relay URL.
type Relay struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// RelayMap is keyed by relay URL.
type RelayMap map[string]Relay

// Identities is the identity service; *identity.Cache implements it.
type Identities interface {
	Get(ctx context.Context) (identity.Identity, error)
	Cached() (identity.Identity, bool)
	Reset()
}

// EventSigner signs with a given group; *signing.Signer implements it.
type EventSigner interface {
	SignEvent(ctx context.Context, unsigned nostr.Event, groupIDBase64 string) (nostr.Event, error)
}

type Provider struct {
	identities Identities
	signer     EventSigner
	relays     RelayMap
	logger     *zap.SugaredLogger
}

func NewProvider(identities Identities, signer EventSigner, relays RelayMap, logger *zap.SugaredLogger) *Provider {
	if relays == nil {
		relays = RelayMap{}
	}
	return &Provider{identities: identities, signer: signer, relays: relays, logger: util.OrNop(logger)}
}

func (p *Provider) State() State {
	if _, ok := p.identities.Cached(); ok {
		return Resolved
	}
	return Unresolved
}

// GetPublicKey returns the x-only public key, resolving the identity on first use.
func (p *Provider) GetPublicKey(ctx context.Context) (string, error) {
	id, err := p.identities.Get(ctx)
	if err != nil {
		return "", err
	}
	return id.PublicKeyHex, nil
}

// SignEvent signs evt with the resolved group.
func (p *Provider) SignEvent(ctx context.Context, evt nostr.Event) (nostr.Event, error) {
	id, err := p.identities.Get(ctx)
	if err != nil {
		return nostr.Event{}, err
	}
	p.logger.Debugw("sign_event", "kind", evt.Kind, "group_id", id.GroupID)
	return p.signer.SignEvent(ctx, evt, id.GroupID)
}

// GetRelays returns a copy of the configured relay policy. It does not
// depend on the identity.
func (p *Provider) GetRelays() RelayMap {
	out := make(RelayMap, len(p.relays))
	for url, r := range p.relays {
		out[url] = r
	}
	return out
}

// ResetIdentity drops the resolved identity so the next call resolves again.
func (p *Provider) ResetIdentity() {
	p.identities.Reset()
}
