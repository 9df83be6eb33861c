// Package envelope encrypts vault payloads independently of the object
// store's own at-rest encryption. The checksum is computed over the plaintext
// before sealing, so corruption of stored ciphertext is still detected after
// decryption.
package envelope

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrIntegrity means decryption failed or the plaintext checksum did not
// match. Fatal for that read: retrying re-reads the same corrupt bytes.
var ErrIntegrity = errors.New("integrity check failed")

// KeySize is the required symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Cipher seals and opens payloads with a process-wide key. The key id is
// bound into the ciphertext as associated data so rotation can be added
// later without changing call sites.
type Cipher struct {
	aead  cipher.AEAD
	keyID string
}

// New builds a Cipher from a 32-byte key and its identifier.
func New(key []byte, keyID string) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("envelope key must be %d bytes, got %d", KeySize, len(key))
	}
	if keyID == "" {
		keyID = "primary"
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Cipher{aead: aead, keyID: keyID}, nil
}

// NewFromHex builds a Cipher from a hex-encoded key.
func NewFromHex(hexKey, keyID string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode envelope key: %w", err)
	}
	return New(key, keyID)
}

// KeyID identifies the key this cipher seals with.
func (c *Cipher) KeyID() string { return c.keyID }

// Checksum returns the hex SHA-256 of the plaintext.
func Checksum(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// Seal encrypts the plaintext and returns the ciphertext together with the
// plaintext checksum. The nonce is prepended to the ciphertext.
func (c *Cipher) Seal(plaintext []byte) (ciphertext []byte, checksum string, err error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, "", fmt.Errorf("generate nonce: %w", err)
	}
	checksum = Checksum(plaintext)
	out := c.aead.Seal(nonce, nonce, plaintext, []byte(c.keyID))
	return out, checksum, nil
}

// Open decrypts the ciphertext and verifies the plaintext checksum in
// constant time. Any tampering with ciphertext or checksum yields
// ErrIntegrity.
func (c *Cipher) Open(ciphertext []byte, expectedChecksum string) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return nil, ErrIntegrity
	}
	nonce, sealed := ciphertext[:chacha20poly1305.NonceSizeX], ciphertext[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, []byte(c.keyID))
	if err != nil {
		return nil, ErrIntegrity
	}
	// The AEAD yields nil for an empty payload; callers get the same bytes
	// back that they sealed, a zero-length slice included.
	if plaintext == nil {
		plaintext = []byte{}
	}
	if !hmac.Equal([]byte(Checksum(plaintext)), []byte(expectedChecksum)) {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}
