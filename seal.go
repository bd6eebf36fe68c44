package aoa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving sealing keys.
const (
	sealKeyLen  = 32
	sealTime    = 1
	sealMemory  = 64 * 1024
	sealThreads = 4
)

// ErrSealed is returned when sealed data is too short or fails
// authentication.
var ErrSealed = errors.New("sealed data rejected")

// Sealer encrypts and authenticates angle readings with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from passphrase and salt with Argon2id.
func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	key := argon2.IDKey([]byte(passphrase), salt, sealTime, sealMemory, sealThreads, sealKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "create gcm")
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext || tag.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrSealed
	}
	pt, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, errors.Wrap(ErrSealed, err.Error())
	}
	return pt, nil
}
