package security

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/neonfs/neonfs/internal/util"
	"github.com/neonfs/neonfs/secure"
)

// KDFAlgorithm selects the password-based key derivation function.
type KDFAlgorithm int

const (
	// PBKDF2SHA256 is PBKDF2-HMAC-SHA256, the default.
	PBKDF2SHA256 KDFAlgorithm = iota
	// PBKDF2SHA512 is PBKDF2-HMAC-SHA512.
	PBKDF2SHA512
)

func (a KDFAlgorithm) String() string {
	switch a {
	case PBKDF2SHA256:
		return "PBKDF2-HMAC-SHA256"
	case PBKDF2SHA512:
		return "PBKDF2-HMAC-SHA512"
	default:
		return fmt.Sprintf("KDFAlgorithm(%d)", int(a))
	}
}

const (
	// DefaultKeySize is the generated master key length in bytes.
	DefaultKeySize = 32
	// DefaultSaltSize is the generated salt length in bytes.
	DefaultSaltSize = 16
	// DefaultIterations is the PBKDF2 iteration count.
	DefaultIterations = 100000

	maxKeySize         = 512
	maxSaltSize        = 64
	maxVerifiedKeySize = 64
)

// Argon2idParams configures the supplemental Argon2id derivation profile.
type Argon2idParams struct {
	Time        uint32 `json:"time"`
	MemoryKiB   uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultArgon2idParams returns the default Argon2id parameters.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
	}
}

// GenerateMasterKey generates a cryptographically random key of the given
// size (1 to 512 bytes) in secure memory.
func GenerateMasterKey(size int) (*secure.Bytes, error) {
	if size <= 0 || size > maxKeySize {
		return nil, fmt.Errorf("invalid key size %d, must be 1..%d", size, maxKeySize)
	}
	key, err := secure.NewRandom(size)
	if err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	return key, nil
}

// GenerateSalt generates a cryptographically random salt of the given size
// (1 to 64 bytes) in secure memory.
func GenerateSalt(size int) (*secure.Bytes, error) {
	if size <= 0 || size > maxSaltSize {
		return nil, fmt.Errorf("invalid salt size %d, must be 1..%d", size, maxSaltSize)
	}
	salt, err := secure.NewRandom(size)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// GenerateKeyID mints a unique identifier for a generated key.
func GenerateKeyID() string {
	return uuid.NewString()
}

// NormalizePassphrase applies NFKD normalization so that visually
// identical passphrases derive identical keys across platforms.
func NormalizePassphrase(s string) string {
	return util.Normalize(s)
}

// DeriveKey derives keyLen bytes from password and salt using PBKDF2 with
// the given algorithm and iteration count. Pass DefaultIterations unless
// the deployment pins its own cost.
func DeriveKey(password, salt *secure.Bytes, keyLen int, algorithm KDFAlgorithm, iterations int) (*secure.Bytes, error) {
	if password == nil || password.Len() == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	if salt == nil || salt.Len() == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("derived key size must be positive, got %d", keyLen)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("iteration count must be positive, got %d", iterations)
	}

	var h func() hash.Hash
	switch algorithm {
	case PBKDF2SHA256:
		h = sha256.New
	case PBKDF2SHA512:
		h = sha512.New
	default:
		return nil, fmt.Errorf("unsupported KDF algorithm: %v", algorithm)
	}

	raw := pbkdf2.Key(password.Data(), salt.Data(), iterations, keyLen, h)
	key, err := secure.NewBytesFrom(raw)
	util.WipeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("key derivation (%v): %w", algorithm, err)
	}
	return key, nil
}

// DeriveKeyArgon2id derives a key with Argon2id. PBKDF2 remains the
// compatibility default; this profile hardens interactive passphrases.
func DeriveKeyArgon2id(password, salt *secure.Bytes, params Argon2idParams) (*secure.Bytes, error) {
	if password == nil || password.Len() == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	if salt == nil || salt.Len() == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	if params.KeyLen == 0 {
		return nil, fmt.Errorf("derived key size must be positive")
	}
	raw := argon2.IDKey(password.Data(), salt.Data(), params.Time, params.MemoryKiB, params.Parallelism, params.KeyLen)
	key, err := secure.NewBytesFrom(raw)
	util.WipeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("key derivation (argon2id): %w", err)
	}
	return key, nil
}

// VerifyPassword derives a key from password and salt and compares it to
// the expected derived key in constant time. The freshly derived key is
// wiped before returning.
func VerifyPassword(password, salt, expected *secure.Bytes, algorithm KDFAlgorithm, iterations int) (bool, error) {
	if expected == nil || expected.Len() == 0 || expected.Len() > maxVerifiedKeySize {
		return false, fmt.Errorf("invalid expected key size")
	}
	derived, err := DeriveKey(password, salt, expected.Len(), algorithm, iterations)
	if err != nil {
		return false, fmt.Errorf("key derivation during verification: %w", err)
	}
	defer derived.Destroy()
	return derived.Equal(expected), nil
}
