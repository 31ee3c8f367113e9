package nintendo

import (
	"encoding/binary"
	"testing"
)

// buildTestCertificate assembles a structurally valid certificate blob with
// the ECDSA SHA-256 signature type (3DS family) or RSA-2048 SHA-256 (Wii U).
func buildTestCertificate(t *testing.T, keyType uint32, name string) []byte {
	t.Helper()

	sigType := uint32(0x10005)
	sigSize, padSize := 0x3C, 0x40
	if keyType != 0x2 {
		sigType = 0x10004
		sigSize, padSize = 0x100, 0x3C
	}

	raw := make([]byte, 4+sigSize+padSize+certBodyMinLength)
	binary.BigEndian.PutUint32(raw, sigType)

	body := raw[4+sigSize+padSize:]
	copy(body[certIssuerOffset:], "Nintendo CA - G3_NintendoCTR2prod")
	binary.BigEndian.PutUint32(body[certKeyTypeOffset:], keyType)
	copy(body[certNameOffset:], name)
	binary.BigEndian.PutUint32(body[certNGKeyIDOffset:], 0x11223344)
	return raw
}

func TestParseCertificate3DS(t *testing.T) {
	cert := ParseCertificate(buildTestCertificate(t, 0x2, "CT0A1B2C3D"))
	if !cert.Valid {
		t.Fatal("expected valid certificate")
	}
	if cert.ConsoleType != Console3DS {
		t.Fatalf("expected 3ds console type, got %q", cert.ConsoleType)
	}
	if cert.CertificateName != "CT0A1B2C3D" {
		t.Fatalf("unexpected certificate name %q", cert.CertificateName)
	}
	id, ok := cert.DeviceID()
	if !ok {
		t.Fatal("device id not decodable")
	}
	if id != 0x0A1B2C3D {
		t.Fatalf("unexpected device id %08x", id)
	}
}

func TestParseCertificateWiiU(t *testing.T) {
	cert := ParseCertificate(buildTestCertificate(t, 0x1, "NG12345678-00"))
	if !cert.Valid {
		t.Fatal("expected valid certificate")
	}
	if cert.ConsoleType != ConsoleWiiU {
		t.Fatalf("expected wiiu console type, got %q", cert.ConsoleType)
	}
	id, ok := cert.DeviceID()
	if !ok {
		t.Fatal("device id not decodable")
	}
	if id != 0x12345678 {
		t.Fatalf("unexpected device id %08x", id)
	}
}

func TestParseCertificateNeverErrors(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		{0x00, 0x01, 0x00, 0x05},                 // valid signature type, no body
		make([]byte, 0x80),                       // zero signature type
		append(make([]byte, 4), make([]byte, 8)...),
	}
	for i, raw := range inputs {
		cert := ParseCertificate(raw)
		if cert.Valid {
			t.Fatalf("input %d parsed as valid", i)
		}
	}
}

func TestParseCertificateUnknownKeyType(t *testing.T) {
	cert := ParseCertificate(buildTestCertificate(t, 0x7, "CT0A1B2C3D"))
	if cert.Valid {
		t.Fatal("unknown key type should not validate")
	}
}

func TestCertificateHashStable(t *testing.T) {
	raw := buildTestCertificate(t, 0x2, "CT0A1B2C3D")
	a := ParseCertificate(raw).Hash()
	b := ParseCertificate(raw).Hash()
	if a != b || a == "" {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
}
