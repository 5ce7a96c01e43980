package crypto

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds a secp256k1 key and produces BIP-340 Schnorr signatures,
// the scheme Nostr events are signed with.
type Signer struct {
	privateKey *btcec.PrivateKey
}

// GenerateKey creates a new random secp256k1 key pair
func GenerateKey() (*Signer, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Signer{privateKey: privateKey}, nil
}

// FromPrivateKeyHex creates a Signer from a hex-encoded private key
// Format: "1234..." (64 hex chars)
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	ecdsaKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	privateKey, _ := btcec.PrivKeyFromBytes(crypto.FromECDSA(ecdsaKey))
	return &Signer{privateKey: privateKey}, nil
}

// PrivateKeyHex returns the private key as hex string
// WARNING: Keep this secret! Never expose to users or logs
func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.privateKey.Serialize())
}

// CompressedPubKey returns the 33-byte SEC1 compressed public key
func (s *Signer) CompressedPubKey() []byte {
	return s.privateKey.PubKey().SerializeCompressed()
}

// XOnlyPubKeyHex returns the 32-byte x coordinate as 64 hex chars
func (s *Signer) XOnlyPubKeyHex() string {
	return hex.EncodeToString(schnorr.SerializePubKey(s.privateKey.PubKey()))
}

// Sign signs a 32-byte hash and returns the 64-byte [R || S] signature
func (s *Signer) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}

	sig, err := schnorr.Sign(s.privateKey, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifySignature checks a BIP-340 signature over hash under an x-only key
func VerifySignature(xOnlyPub []byte, hash []byte, signature []byte) bool {
	if len(signature) != 64 || len(hash) != 32 {
		return false
	}
	pub, err := schnorr.ParsePubKey(xOnlyPub)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pub)
}

// CheckCompressedPoint reports whether b is a compressed point on secp256k1
func CheckCompressedPoint(b []byte) error {
	if len(b) != 33 {
		return fmt.Errorf("invalid compressed point length: %d", len(b))
	}
	if _, err := crypto.DecompressPubkey(b); err != nil {
		return fmt.Errorf("not a secp256k1 point: %w", err)
	}
	return nil
}

// SignatureToRS splits a 64-byte signature into its R and S components
// Useful for debugging coordinator output
func SignatureToRS(signature []byte) (r, s *big.Int, err error) {
	if len(signature) != 64 {
		return nil, nil, fmt.Errorf("invalid signature length: %d", len(signature))
	}

	r = new(big.Int).SetBytes(signature[:32])
	s = new(big.Int).SetBytes(signature[32:])
	return r, s, nil
}
