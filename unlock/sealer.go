package unlock

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "hostctl unlock v1"

var (
	adRequest  = []byte("request")
	adResponse = []byte("response")
)

var (
	ErrEmptySecret  = errors.New("empty secret")
	ErrShortFrame   = errors.New("sealed frame too short")
	ErrAuthenticate = errors.New("message authentication failed")
)

// Sealer encrypts and authenticates messages with a key derived from a
// shared secret.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed deriving key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed creating cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plain, ad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed generating nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plain, ad), nil
}

func (s *Sealer) Open(frame, ad []byte) ([]byte, error) {
	if len(frame) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrShortFrame
	}

	nonce, ciphertext := frame[:s.aead.NonceSize()], frame[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, ErrAuthenticate
	}

	return plain, nil
}

// Overhead is the number of bytes a sealed frame adds to its plaintext.
func (s *Sealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}
