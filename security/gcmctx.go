// Package security implements the AES-256-GCM encryption provider, the
// bounded cipher-context pool it draws from, and the key manager used to
// generate and derive master keys.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/neonfs/neonfs/internal/util"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length in bytes.
	IVSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// GCMContext is a reusable AES-256-GCM cipher state. It owns the expanded
// key schedule for a single key and performs one seal or open at a time.
// Contexts circulate through a CtxPool; callers obtain one via a Handle
// and must not retain it past release.
type GCMContext struct {
	aead cipher.AEAD
}

// NewGCMContext expands the given 32-byte key into a ready GCM state.
func NewGCMContext(key []byte) (*GCMContext, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be 256 bits (32 bytes), got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &GCMContext{aead: aead}, nil
}

// Seal encrypts plain under the given 12-byte IV and returns the
// ciphertext (same length as plain) and the 16-byte authentication tag
// separately.
func (c *GCMContext) Seal(iv, plain []byte) (ciphertext, tag []byte, err error) {
	if len(iv) != IVSize {
		return nil, nil, fmt.Errorf("IV must be 96 bits (12 bytes), got %d", len(iv))
	}
	sealed := c.aead.Seal(nil, iv, plain, nil)
	return sealed[:len(plain)], sealed[len(plain):], nil
}

// Open decrypts ciphertext under the given IV and verifies the expected
// tag. It returns ErrAuthentication if the ciphertext, IV or tag has been
// altered in any way.
func (c *GCMContext) Open(iv, ciphertext, tag []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("IV must be 96 bits (12 bytes), got %d", len(iv))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("tag must be 128 bits (16 bytes), got %d", len(tag))
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plain, err := c.aead.Open(nil, iv, sealed, nil)
	util.WipeBytes(sealed)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plain, nil
}

// Reset is called before the context returns to its pool. A GCMContext
// keeps no per-operation state, so there is nothing to clear. The key
// schedule is retained; the pool exists to amortize its construction.
func (c *GCMContext) Reset() {}
