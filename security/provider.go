package security

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/neonfs/neonfs/internal/util"
	"github.com/neonfs/neonfs/secure"
)

// DefaultPoolSize is the default number of cipher contexts a provider may
// hold live at once.
const DefaultPoolSize = 5

// EncryptionProvider is the AEAD capability surface of the system. Plain,
// IV and tag buffers live in secure memory; IV and tag are in/out
// parameters framed separately from the ciphertext.
type EncryptionProvider interface {
	// Encrypt seals plain. An empty iv buffer is filled with a fresh
	// random 12-byte IV; tag is rewritten to the 16-byte authentication
	// tag. The ciphertext has the same length as plain.
	Encrypt(plain, iv, tag *secure.Bytes) (*secure.Bytes, error)
	// Decrypt opens cipher under iv, verifying tag. Any altered byte in
	// cipher, iv or tag fails with ErrAuthentication.
	Decrypt(cipher, iv, tag *secure.Bytes) (*secure.Bytes, error)
	IVSize() int
	TagSize() int
}

// AESProvider implements EncryptionProvider with AES-256-GCM. The master
// key is fixed at construction and kept sealed in a memguard enclave; all
// synchronisation is delegated to the context pool, so the provider is
// safe for unbounded concurrent use.
type AESProvider struct {
	key  *memguard.Enclave
	pool *CtxPool
}

var _ EncryptionProvider = (*AESProvider)(nil)

// ProviderOption configures an AESProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	poolSize int
}

// WithPoolSize bounds the number of simultaneously live cipher contexts.
func WithPoolSize(n int) ProviderOption {
	return func(o *providerOptions) {
		o.poolSize = n
	}
}

// NewAESProvider constructs a provider from a 32-byte master key. The key
// buffer is consumed: its contents move into an enclave and the buffer is
// destroyed, even on error.
func NewAESProvider(key *secure.Bytes, opts ...ProviderOption) (*AESProvider, error) {
	if key == nil {
		return nil, fmt.Errorf("master key is required")
	}
	defer key.Destroy()
	if key.Len() != KeySize {
		return nil, fmt.Errorf("master key must be 256 bits (32 bytes), got %d", key.Len())
	}

	o := providerOptions{poolSize: DefaultPoolSize}
	for _, opt := range opts {
		opt(&o)
	}

	p := &AESProvider{key: memguard.NewEnclave(util.CopyBytes(key.Data()))}
	pool, err := NewCtxPool(o.poolSize, p.newContext)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// newContext opens the enclave just long enough to expand the key
// schedule for a fresh pooled context.
func (p *AESProvider) newContext() (*GCMContext, error) {
	kb, err := p.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening master key enclave: %w", err)
	}
	defer kb.Destroy()
	return NewGCMContext(kb.Bytes())
}

func (p *AESProvider) Encrypt(plain, iv, tag *secure.Bytes) (*secure.Bytes, error) {
	if plain == nil || iv == nil || tag == nil {
		return nil, fmt.Errorf("plain, iv and tag buffers are required")
	}
	switch iv.Len() {
	case 0:
		if err := iv.Resize(IVSize); err != nil {
			return nil, err
		}
		if _, err := rand.Read(iv.Data()); err != nil {
			return nil, fmt.Errorf("generating IV: %w", err)
		}
	case IVSize:
	default:
		return nil, fmt.Errorf("IV must be 96 bits (12 bytes), got %d", iv.Len())
	}
	if err := tag.Resize(TagSize); err != nil {
		return nil, err
	}
	tag.Wipe()

	h, err := p.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	ciphertext, gcmTag, err := h.Ctx().Seal(iv.Data(), plain.Data())
	if err != nil {
		return nil, err
	}
	copy(tag.Data(), gcmTag)
	util.WipeBytes(gcmTag)

	out, err := secure.NewBytesFrom(ciphertext)
	util.WipeBytes(ciphertext)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *AESProvider) Decrypt(cipher, iv, tag *secure.Bytes) (*secure.Bytes, error) {
	if cipher == nil || iv == nil || tag == nil {
		return nil, fmt.Errorf("cipher, iv and tag buffers are required")
	}
	if cipher.Len() == 0 {
		return nil, fmt.Errorf("ciphertext must not be empty")
	}
	if iv.Len() != IVSize {
		return nil, fmt.Errorf("IV must be 96 bits (12 bytes), got %d", iv.Len())
	}
	if tag.Len() != TagSize {
		return nil, fmt.Errorf("tag must be 128 bits (16 bytes), got %d", tag.Len())
	}

	h, err := p.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	plain, err := h.Ctx().Open(iv.Data(), cipher.Data(), tag.Data())
	if err != nil {
		return nil, err
	}
	out, err := secure.NewBytesFrom(plain)
	util.WipeBytes(plain)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IVSize returns 12, a constant of the AEAD choice.
func (p *AESProvider) IVSize() int { return IVSize }

// TagSize returns 16, a constant of the AEAD choice.
func (p *AESProvider) TagSize() int { return TagSize }

// PoolAvailable reports the number of idle cipher contexts (diagnostic).
func (p *AESProvider) PoolAvailable() int { return p.pool.Available() }
