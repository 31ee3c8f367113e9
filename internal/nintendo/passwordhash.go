package nintendo

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// The consoles hash passwords client-side before transmission, binding the
// password to the account's PID so two accounts sharing a password never
// share a hash. This is only a pre-hash; callers must still run the result
// through a slow storage hash (bcrypt) before persisting.
var passwordHashMagic = []byte{0x02, 0x65, 0x43, 0x46}

// PasswordHash computes the console-compatible password pre-hash:
// sha256(le32(pid) || magic || password), lowercase hex.
func PasswordHash(password string, pid uint32) string {
	buf := make([]byte, 0, 8+len(password))
	buf = binary.LittleEndian.AppendUint32(buf, pid)
	buf = append(buf, passwordHashMagic...)
	buf = append(buf, password...)

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
