package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	// Check private key hex is 64 chars (32 bytes)
	if privHex := signer.PrivateKeyHex(); len(privHex) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(privHex))
	}

	// Compressed key carries a 02/03 parity prefix
	compressed := signer.CompressedPubKey()
	if len(compressed) != 33 || (compressed[0] != 0x02 && compressed[0] != 0x03) {
		t.Errorf("compressed key = %x", compressed)
	}

	// x-only key is the compressed key without its prefix
	if got, want := signer.XOnlyPubKeyHex(), hex.EncodeToString(compressed[1:]); got != want {
		t.Errorf("x-only key = %s, want %s", got, want)
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	// Generate a key and use it for round-trip testing
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()

	signer2, err := FromPrivateKeyHex(privHex)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	if signer2.XOnlyPubKeyHex() != signer1.XOnlyPubKeyHex() {
		t.Errorf("public key mismatch after reload")
	}

	if _, err := FromPrivateKeyHex("zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := GenerateKey()
	hash := sha256.Sum256([]byte("Hello, Nostr!"))

	signature, err := signer.Sign(hash[:])
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if len(signature) != 64 {
		t.Errorf("signature length = %d, want 64", len(signature))
	}

	pub, _ := hex.DecodeString(signer.XOnlyPubKeyHex())
	if !VerifySignature(pub, hash[:], signature) {
		t.Error("signature verification failed")
	}

	// Wrong message should fail
	other := sha256.Sum256([]byte("Wrong message"))
	if VerifySignature(pub, other[:], signature) {
		t.Error("signature verified for wrong message")
	}

	// Tampered signature should fail
	signature[10] ^= 0x01
	if VerifySignature(pub, hash[:], signature) {
		t.Error("tampered signature verified")
	}
}

func TestSignRejectsNonHash(t *testing.T) {
	signer, _ := GenerateKey()
	if _, err := signer.Sign([]byte("short")); err == nil {
		t.Error("expected error for non-32-byte input")
	}
}

func TestCheckCompressedPoint(t *testing.T) {
	signer, _ := GenerateKey()
	if err := CheckCompressedPoint(signer.CompressedPubKey()); err != nil {
		t.Errorf("valid point rejected: %v", err)
	}

	// x = 5 has no y on secp256k1
	bad, _ := hex.DecodeString("02" + "0000000000000000000000000000000000000000000000000000000000000005")
	if err := CheckCompressedPoint(bad); err == nil {
		t.Error("off-curve point accepted")
	}

	if err := CheckCompressedPoint([]byte{0x02}); err == nil {
		t.Error("short point accepted")
	}
}

func TestSignatureToRS(t *testing.T) {
	sig := make([]byte, 64)
	sig[31] = 1
	sig[63] = 2
	r, s, err := SignatureToRS(sig)
	if err != nil {
		t.Fatal(err)
	}
	if r.Int64() != 1 || s.Int64() != 2 {
		t.Errorf("r=%s s=%s", r, s)
	}
	if _, _, err := SignatureToRS(sig[:63]); err == nil {
		t.Error("expected length error")
	}
}
