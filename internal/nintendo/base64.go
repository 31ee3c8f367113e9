package nintendo

import (
	"encoding/base64"
	"strings"
)

// The consoles embed binary payloads in form fields and URLs using standard
// base64 with the reserved characters substituted away: '+' -> '.',
// '/' -> '-', '=' -> '*'.

var (
	base64Encoder = strings.NewReplacer("+", ".", "/", "-", "=", "*")
	base64Decoder = strings.NewReplacer(".", "+", "-", "/", "*", "=")
)

// Base64Encode encodes data in the console-flavored base64 alphabet.
func Base64Encode(data []byte) string {
	return base64Encoder.Replace(base64.StdEncoding.EncodeToString(data))
}

// Base64Decode decodes console-flavored base64 text.
func Base64Decode(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Decoder.Replace(encoded))
}
