package nintendo

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strconv"
	"strings"
)

// ConsoleType is the hardware family a device certificate belongs to.
type ConsoleType string

const (
	Console3DS  ConsoleType = "3ds"
	ConsoleWiiU ConsoleType = "wiiu"
)

// Certificate is a parsed device certificate. Parsing never fails: malformed
// input yields Valid=false, because this sits directly on the unauthenticated
// request path and a panic or error there is an outage.
type Certificate struct {
	Valid           bool
	SignatureType   uint32
	Issuer          string
	KeyType         uint32
	CertificateName string
	NGKeyID         uint32
	ConsoleType     ConsoleType

	raw []byte
}

// Per-signature-type sizes of the signature blob and the padding that
// follows it, before the certificate body begins. The layout is a contract
// with the device families and cannot be derived from the blob itself.
var signatureTypeSizes = map[uint32]struct {
	signature int
	padding   int
}{
	0x10000: {signature: 0x200, padding: 0x3C}, // RSA-4096 SHA-1
	0x10001: {signature: 0x100, padding: 0x3C}, // RSA-2048 SHA-1
	0x10002: {signature: 0x3C, padding: 0x40},  // ECDSA SHA-1
	0x10003: {signature: 0x200, padding: 0x3C}, // RSA-4096 SHA-256
	0x10004: {signature: 0x100, padding: 0x3C}, // RSA-2048 SHA-256
	0x10005: {signature: 0x3C, padding: 0x40},  // ECDSA SHA-256
}

const (
	certIssuerOffset  = 0x00
	certIssuerLength  = 0x40
	certKeyTypeOffset = 0x40
	certNameOffset    = 0x44
	certNameLength    = 0x40
	certNGKeyIDOffset = 0x84
	certBodyMinLength = 0x88
)

// ParseCertificate extracts the structural fields of a device certificate.
func ParseCertificate(raw []byte) *Certificate {
	cert := &Certificate{raw: raw}

	if len(raw) < 4 {
		return cert
	}

	cert.SignatureType = binary.BigEndian.Uint32(raw)
	sizes, ok := signatureTypeSizes[cert.SignatureType]
	if !ok {
		return cert
	}

	bodyOffset := 4 + sizes.signature + sizes.padding
	if len(raw) < bodyOffset+certBodyMinLength {
		return cert
	}
	body := raw[bodyOffset:]

	cert.Issuer = trimNulls(body[certIssuerOffset : certIssuerOffset+certIssuerLength])
	cert.KeyType = binary.BigEndian.Uint32(body[certKeyTypeOffset:])
	cert.CertificateName = trimNulls(body[certNameOffset : certNameOffset+certNameLength])
	cert.NGKeyID = binary.BigEndian.Uint32(body[certNGKeyIDOffset:])

	switch cert.KeyType {
	case 0x0, 0x1: // RSA keys are only issued to Wii U consoles
		cert.ConsoleType = ConsoleWiiU
	case 0x2:
		cert.ConsoleType = Console3DS
	default:
		return cert
	}

	if cert.CertificateName == "" {
		return cert
	}

	cert.Valid = true
	return cert
}

// DeviceID decodes the numeric device identifier embedded in the hex
// segment of the certificate name, after the two-character prefix.
func (c *Certificate) DeviceID() (uint32, bool) {
	if len(c.CertificateName) < 3 {
		return 0, false
	}
	segment := c.CertificateName[2:]
	if i := strings.IndexByte(segment, '-'); i >= 0 {
		segment = segment[:i]
	}
	id, err := strconv.ParseUint(segment, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// Hash returns the base64 SHA-256 digest of the raw certificate bytes,
// used as the persistent device fingerprint.
func (c *Certificate) Hash() string {
	sum := sha256.Sum256(c.raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func trimNulls(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
