// Package wireformat converts between the coordinator's serialized values and
// the raw byte and hex forms the signer works with.
//
// The coordinator returns keys and signatures as the ASCII text of a hex
// string wrapped in double quotes, e.g. `"02ab..."`. Group identifiers travel
// as base64 of those bytes.
package wireformat

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
)

const (
	// CompressedPointLen is a parity byte followed by a 32-byte x-coordinate.
	CompressedPointLen = 1 + 32
	// XOnlyKeyLen is the x-coordinate alone.
	XOnlyKeyLen = 32
	// SignatureLen is the (r, s) scalar pair, big-endian.
	SignatureLen = 64
)

// StripRedundantQuotes returns the interior of a string wrapped in double quotes.
func StripRedundantQuotes(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", signerr.Format("strip_quotes", "value is not wrapped in redundant quotes")
	}
	return s[1 : len(s)-1], nil
}

// StripParityByte removes a leading 02 or 03 compressed-point prefix.
// Any other input is returned unchanged.
func StripParityByte(hexPoint string) string {
	if len(hexPoint) < 2 || hexPoint[0] != '0' || (hexPoint[1] != '2' && hexPoint[1] != '3') {
		return hexPoint
	}
	return hexPoint[2:]
}

// HexToBytes decodes an even-length hex string.
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, signerr.Format("hex_decode", "odd-length hex string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		e := signerr.Format("hex_decode", "invalid hex string")
		e.Err = err
		return nil, e
	}
	return b, nil
}

// BytesToHex encodes b as lowercase hex.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeQuotedHex unwraps a raw coordinator value and returns the hex text inside.
func DecodeQuotedHex(raw []byte) (string, error) {
	return StripRedundantQuotes(string(raw))
}

// DecodeCoordinatorValue decodes a base64 coordinator value and returns the
// hex text inside its quotes.
func DecodeCoordinatorValue(b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		e := signerr.Format("base64_decode", "invalid base64 value")
		e.Err = err
		return "", e
	}
	return DecodeQuotedHex(raw)
}

// EncodeCoordinatorValue is the inverse of DecodeCoordinatorValue.
func EncodeCoordinatorValue(hexText string) string {
	return base64.StdEncoding.EncodeToString(QuoteHex(hexText))
}

// QuoteHex produces the coordinator's raw serialization of a hex string.
func QuoteHex(hexText string) []byte {
	out := make([]byte, 0, len(hexText)+2)
	out = append(out, '"')
	out = append(out, hexText...)
	return append(out, '"')
}
