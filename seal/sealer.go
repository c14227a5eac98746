// Package seal implements the encrypt-then-hash transform that turns a raw
// bid document into a tamper-evident sealed record.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// KeySize is the required symmetric key length (AES-256)
const KeySize = 32

// Sealer encrypts bid documents under a process-wide AES-256 key and digests
// the ciphertext with SHA3-512. The digest binds the proof to one specific
// encryption instance: the IV is fresh per call, so re-sealing identical
// plaintext yields a different digest.
type Sealer struct {
	block cipher.Block
}

// NewSealer creates a Sealer from a 32-byte key
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &Sealer{block: block}, nil
}

// Seal encrypts plaintext with a fresh random IV and returns the ciphertext,
// the IV, and the hex-encoded SHA3-512 digest of the ciphertext. The digest is
// externally verifiable by anyone holding the ciphertext, without access to
// the key or the original document.
func (s *Sealer) Seal(plaintext []byte) (ciphertext, iv []byte, digest string, err error) {
	iv = make([]byte, aes.BlockSize)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate iv: %w", err)
	}

	ciphertext = make([]byte, len(plaintext))
	cipher.NewCFBEncrypter(s.block, iv).XORKeyStream(ciphertext, plaintext)

	return ciphertext, iv, Digest(ciphertext), nil
}

// Open decrypts ciphertext produced by Seal with the matching IV. Used for
// authorized verification; the service itself never stores plaintext.
func (s *Sealer) Open(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCFBDecrypter(s.block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// Digest returns the hex-encoded SHA3-512 digest of data. 128 hex characters.
func Digest(data []byte) string {
	sum := sha3.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the hex-encoded SHA-256 hash of a metadata string.
// Narrower than the bid digest: it protects integrity of structured text
// (tender content), not confidentiality of a document.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
