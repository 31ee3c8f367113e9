package nintendo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// SystemType identifies the console/platform family a token was minted for.
type SystemType uint8

const (
	SystemWiiU SystemType = 0x1
	System3DS  SystemType = 0x2
	SystemAPI  SystemType = 0x3
)

// TokenType identifies what a token grants access to.
type TokenType uint8

const (
	TokenTypeOAuthAccess   TokenType = 0x1
	TokenTypeOAuthRefresh  TokenType = 0x2
	TokenTypeNEX           TokenType = 0x3
	TokenTypeService       TokenType = 0x4
	TokenTypePasswordReset TokenType = 0x5
)

var (
	ErrMissingTokenExtra  = errors.New("nintendo: token type requires title id and access level")
	ErrChecksumMismatch   = errors.New("nintendo: token checksum mismatch")
	ErrInvalidTokenLength = errors.New("nintendo: invalid token length")
	ErrInvalidKeyLength   = errors.New("nintendo: AES key must be 32 bytes")
	ErrInvalidPadding     = errors.New("nintendo: invalid token padding")
)

// TokenExtra carries the fields only present in the extended token layout.
type TokenExtra struct {
	TitleID     uint64
	AccessLevel int8
}

// TokenPayload is the decrypted content of a session token. Extra must be
// set exactly when Extended reports true; Encode enforces this.
type TokenPayload struct {
	SystemType SystemType
	TokenType  TokenType
	PID        uint32
	ExpireTime uint64 // epoch milliseconds
	Extra      *TokenExtra
}

// Extended reports whether the token uses the 23-byte extended layout.
// OAuth access/refresh tokens are short, except on the API system type
// where every token carries the title id and access level.
func (p TokenPayload) Extended() bool {
	if p.SystemType == SystemAPI {
		return true
	}
	return p.TokenType != TokenTypeOAuthAccess && p.TokenType != TokenTypeOAuthRefresh
}

const (
	tokenBaseLength     = 14
	tokenExtendedLength = 23
)

// EncodeToken packs and encrypts a token. The buffer is AES-256-CBC
// encrypted with an all-zero IV; the zero IV is part of the wire contract
// with the consoles and must not be changed. Extended tokens prepend a
// big-endian CRC-32 of the plaintext to the ciphertext.
func EncodeToken(key []byte, payload TokenPayload) ([]byte, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}

	extended := payload.Extended()
	if extended && payload.Extra == nil {
		return nil, ErrMissingTokenExtra
	}

	size := tokenBaseLength
	if extended {
		size = tokenExtendedLength
	}

	plain := make([]byte, size)
	plain[0x0] = byte(payload.SystemType)
	plain[0x1] = byte(payload.TokenType)
	binary.LittleEndian.PutUint32(plain[0x2:], payload.PID)
	binary.LittleEndian.PutUint64(plain[0x6:], payload.ExpireTime)
	if extended {
		binary.LittleEndian.PutUint64(plain[0xE:], payload.Extra.TitleID)
		plain[0x16] = byte(payload.Extra.AccessLevel)
	}

	encrypted, err := encryptCBC(key, plain)
	if err != nil {
		return nil, err
	}

	if !extended {
		return encrypted, nil
	}

	out := make([]byte, 4+len(encrypted))
	binary.BigEndian.PutUint32(out, crc32.ChecksumIEEE(plain))
	copy(out[4:], encrypted)
	return out, nil
}

// DecodeToken decrypts and unpacks a token. A 16-byte input is treated as
// checksumless ciphertext; anything longer carries a 4-byte big-endian
// CRC-32 of the plaintext first. The checksum is the only defense against
// decrypting with the wrong key, since CBC yields garbage silently.
func DecodeToken(key, raw []byte) (TokenPayload, error) {
	if len(key) != 32 {
		return TokenPayload{}, ErrInvalidKeyLength
	}

	var body []byte
	var checksum uint32
	hasChecksum := false

	if len(raw) == aes.BlockSize {
		body = raw
	} else {
		if len(raw) < 4+aes.BlockSize {
			return TokenPayload{}, ErrInvalidTokenLength
		}
		checksum = binary.BigEndian.Uint32(raw)
		body = raw[4:]
		hasChecksum = true
	}

	plain, err := decryptCBC(key, body)
	if err != nil {
		return TokenPayload{}, err
	}

	if hasChecksum && checksum != crc32.ChecksumIEEE(plain) {
		return TokenPayload{}, ErrChecksumMismatch
	}

	if len(plain) < tokenBaseLength {
		return TokenPayload{}, ErrInvalidTokenLength
	}

	payload := TokenPayload{
		SystemType: SystemType(plain[0x0]),
		TokenType:  TokenType(plain[0x1]),
		PID:        binary.LittleEndian.Uint32(plain[0x2:]),
		ExpireTime: binary.LittleEndian.Uint64(plain[0x6:]),
	}

	if payload.Extended() {
		if len(plain) < tokenExtendedLength {
			return TokenPayload{}, ErrInvalidTokenLength
		}
		payload.Extra = &TokenExtra{
			TitleID:     binary.LittleEndian.Uint64(plain[0xE:]),
			AccessLevel: int8(plain[0x16]),
		}
	}

	return payload, nil
}

func encryptCBC(key, plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func decryptCBC(key, body []byte) ([]byte, error) {
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, ErrInvalidTokenLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(body))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
