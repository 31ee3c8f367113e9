package nintendo

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for size := 0; size < 64; size++ {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(rng.UintN(256))
		}

		encoded := Base64Encode(data)
		if strings.ContainsAny(encoded, "+/=") {
			t.Fatalf("encoded text contains reserved characters: %q", encoded)
		}

		decoded, err := Base64Decode(encoded)
		if err != nil {
			t.Fatalf("decode %q: %v", encoded, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Fatalf("round trip mismatch for %d bytes", size)
		}
	}
}

func TestBase64SubstitutionCharacters(t *testing.T) {
	// 0xFF 0xFE 0xFD encodes to "//79" in standard base64, exercising
	// every substituted character including padding.
	encoded := Base64Encode([]byte{0xFF, 0xFE})
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("substitution missed a reserved character: %q", encoded)
	}
	decoded, err := Base64Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, []byte{0xFF, 0xFE}) {
		t.Fatalf("round trip mismatch: %v", decoded)
	}
}

func TestBase64DecodeRejectsGarbage(t *testing.T) {
	if _, err := Base64Decode("not base64 at all!"); err == nil {
		t.Fatal("expected decode error")
	}
}
