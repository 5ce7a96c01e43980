// Package identity resolves which coordinator group signs for the user and
// derives the user's public key from it.
package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/crypto"
	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
	"github.com/uhyunpark/nostr-signerd/pkg/wireformat"
)

// Identity is the resolved signing identity: the x-only public key (64
// lowercase hex chars) and the base64 identifier of the group that holds it.
type Identity struct {
	PublicKeyHex string `json:"pubkey"`
	GroupID      string `json:"groupId"`
}

// Resolver picks the signing group from the coordinator's group list.
type Resolver struct {
	client coordinator.Client
	logger *zap.SugaredLogger
}

func NewResolver(client coordinator.Client, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{client: client, logger: util.OrNop(logger)}
}

// Qualifies reports whether a group can sign events: a challenge-signing key
// run with the two-round MuSig2 protocol.
func Qualifies(g coordinator.Group) bool {
	return g.KeyType == coordinator.KeySignChallenge && g.Protocol == coordinator.ProtocolMuSig2
}

// SelectGroup returns the last qualifying group in list order.
func SelectGroup(groups []coordinator.Group) (coordinator.Group, error) {
	if len(groups) == 0 {
		return coordinator.Group{}, signerr.Coordinator("select_group", "no groups exist")
	}
	for i := len(groups) - 1; i >= 0; i-- {
		if Qualifies(groups[i]) {
			return groups[i], nil
		}
	}
	return coordinator.Group{}, signerr.Coordinator("select_group", "no group supports challenge signing with MuSig2")
}

// FormatPublicKey derives the x-only public key from a base64 group identifier.
func FormatPublicKey(groupIDBase64 string) (string, error) {
	pointHex, err := decodePoint(groupIDBase64)
	if err != nil {
		return "", err
	}
	return wireformat.StripParityByte(pointHex), nil
}

func decodePoint(groupIDBase64 string) (string, error) {
	pointHex, err := wireformat.DecodeCoordinatorValue(groupIDBase64)
	if err != nil {
		return "", err
	}
	if len(pointHex) != 2*wireformat.CompressedPointLen {
		e := signerr.FormatLength("format_pubkey", "invalid public key length", wireformat.CompressedPointLen, len(pointHex)/2)
		e.GroupID = groupIDBase64
		return "", e
	}
	if _, err := wireformat.HexToBytes(pointHex); err != nil {
		return "", err
	}
	return strings.ToLower(pointHex), nil
}

// Resolve lists groups, selects the signing group and derives its key.
func (r *Resolver) Resolve(ctx context.Context) (Identity, error) {
	groups, err := r.client.ListGroups(ctx)
	if err != nil {
		return Identity{}, err
	}

	group, err := SelectGroup(groups)
	if err != nil {
		r.logger.Warnw("identity_no_group", "groups", len(groups), "err", err)
		return Identity{}, err
	}

	groupID := group.IdentifierBase64()
	pointHex, err := decodePoint(groupID)
	if err != nil {
		return Identity{}, err
	}
	r.checkOnCurve(group.Name, pointHex)

	id := Identity{
		PublicKeyHex: wireformat.StripParityByte(pointHex),
		GroupID:      groupID,
	}
	r.logger.Infow("identity_resolved", "group", group.Name, "pubkey", id.PublicKeyHex)
	return id, nil
}

// checkOnCurve warns when the coordinator hands out a key that is not a
// secp256k1 point. Signatures under such a key can never verify.
func (r *Resolver) checkOnCurve(groupName, pointHex string) {
	raw, err := wireformat.HexToBytes(pointHex)
	if err != nil {
		return
	}
	if err := crypto.CheckCompressedPoint(raw); err != nil {
		r.logger.Warnw("identity_key_not_on_curve", "group", groupName, "err", err)
	}
}
