package wireformat

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
)

func TestStripRedundantQuotes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "wrapped", in: `"abcd"`, want: "abcd"},
		{name: "empty interior", in: `""`, want: ""},
		{name: "missing leading", in: `abcd"`, wantErr: true},
		{name: "missing trailing", in: `"abcd`, wantErr: true},
		{name: "single quote char", in: `"`, wantErr: true},
		{name: "empty", in: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripRedundantQuotes(tt.in)
			if tt.wantErr {
				if !signerr.Is(err, signerr.KindFormat) {
					t.Fatalf("err = %v, want FORMAT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripParityByte(t *testing.T) {
	x := strings.Repeat("ab", 32)
	tests := []struct {
		in   string
		want string
	}{
		{"02" + x, x},
		{"03" + x, x},
		{"04" + x, "04" + x},
		{"12" + x, "12" + x},
		{x, x},
		{"0", "0"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripParityByte(tt.in); got != tt.want {
			t.Errorf("StripParityByte(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripParityByte_IdentityWithoutPrefix(t *testing.T) {
	for i := 0; i < 256; i++ {
		if i == 2 || i == 3 {
			continue
		}
		b := make([]byte, 33)
		b[0] = byte(i)
		rand.Read(b[1:])
		h := BytesToHex(b)
		if got := StripParityByte(h); got != h {
			t.Fatalf("first byte %#x: got %q, want unchanged", i, got)
		}
	}
}

func TestHexToBytes(t *testing.T) {
	b, err := HexToBytes("00ff10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(b, []byte{0x00, 0xff, 0x10}) {
		t.Errorf("got %x", b)
	}

	for _, bad := range []string{"abc", "zz", "0g"} {
		if _, err := HexToBytes(bad); !signerr.Is(err, signerr.KindFormat) {
			t.Errorf("HexToBytes(%q) err = %v, want FORMAT", bad, err)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	for n := 0; n < 70; n++ {
		b := make([]byte, n)
		rand.Read(b)
		got, err := HexToBytes(BytesToHex(b))
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestDecodeCoordinatorValue_CompressedPoint(t *testing.T) {
	for i := 0; i < 32; i++ {
		point := make([]byte, CompressedPointLen)
		rand.Read(point)
		point[0] = 0x02 + byte(i%2)

		encoded := EncodeCoordinatorValue(BytesToHex(point))
		h, err := DecodeCoordinatorValue(encoded)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if x := StripParityByte(h); len(x) != 2*XOnlyKeyLen {
			t.Fatalf("x-only key has %d hex chars, want 64", len(x))
		}
	}
}

func TestDecodeCoordinatorValue_Errors(t *testing.T) {
	if _, err := DecodeCoordinatorValue("!!not base64!!"); !signerr.Is(err, signerr.KindFormat) {
		t.Errorf("bad base64: err = %v, want FORMAT", err)
	}
	unquoted := "MDJhYg==" // base64("02ab")
	if _, err := DecodeCoordinatorValue(unquoted); !signerr.Is(err, signerr.KindFormat) {
		t.Errorf("unquoted: err = %v, want FORMAT", err)
	}
}
