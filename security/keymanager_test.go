package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey(DefaultKeySize)
	require.NoError(t, err)
	defer key.Destroy()
	assert.Equal(t, DefaultKeySize, key.Len())

	big, err := GenerateMasterKey(512)
	require.NoError(t, err)
	defer big.Destroy()
	assert.Equal(t, 512, big.Len())

	for _, size := range []int{0, -1, 513} {
		_, err := GenerateMasterKey(size)
		assert.Error(t, err, "size %d", size)
	}
}

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt(DefaultSaltSize)
	require.NoError(t, err)
	defer salt.Destroy()
	assert.Equal(t, DefaultSaltSize, salt.Len())

	for _, size := range []int{0, -1, 65} {
		_, err := GenerateSalt(size)
		assert.Error(t, err, "size %d", size)
	}
}

func TestGenerateKeyID(t *testing.T) {
	a := GenerateKeyID()
	b := GenerateKeyID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestDeriveKey(t *testing.T) {
	password := secBytes(t, []byte("correct horse battery staple"))
	salt := secBytes(t, []byte("a pinch of salt!"))

	key, err := DeriveKey(password, salt, 32, PBKDF2SHA256, 1000)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	assert.Equal(t, 32, key.Len())

	t.Run("Deterministic", func(t *testing.T) {
		again, err := DeriveKey(password, salt, 32, PBKDF2SHA256, 1000)
		require.NoError(t, err)
		defer again.Destroy()
		assert.True(t, key.Equal(again))
	})

	t.Run("AlgorithmChangesKey", func(t *testing.T) {
		other, err := DeriveKey(password, salt, 32, PBKDF2SHA512, 1000)
		require.NoError(t, err)
		defer other.Destroy()
		assert.False(t, key.Equal(other))
	})

	t.Run("IterationsChangeKey", func(t *testing.T) {
		other, err := DeriveKey(password, salt, 32, PBKDF2SHA256, 1001)
		require.NoError(t, err)
		defer other.Destroy()
		assert.False(t, key.Equal(other))
	})

	t.Run("InvalidInputs", func(t *testing.T) {
		empty := emptyBuf(t)
		_, err := DeriveKey(empty, salt, 32, PBKDF2SHA256, 1000)
		assert.Error(t, err)
		_, err = DeriveKey(password, empty, 32, PBKDF2SHA256, 1000)
		assert.Error(t, err)
		_, err = DeriveKey(password, salt, 0, PBKDF2SHA256, 1000)
		assert.Error(t, err)
		_, err = DeriveKey(password, salt, 32, PBKDF2SHA256, 0)
		assert.Error(t, err)
		_, err = DeriveKey(password, salt, 32, KDFAlgorithm(99), 1000)
		assert.Error(t, err)
	})
}

func TestDeriveKeyArgon2id(t *testing.T) {
	password := secBytes(t, []byte("interactive passphrase"))
	salt := secBytes(t, []byte("argon salt"))

	params := DefaultArgon2idParams()
	params.MemoryKiB = 8 * 1024 // keep the test light

	key, err := DeriveKeyArgon2id(password, salt, params)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)
	assert.Equal(t, 32, key.Len())

	again, err := DeriveKeyArgon2id(password, salt, params)
	require.NoError(t, err)
	defer again.Destroy()
	assert.True(t, key.Equal(again))
}

func TestVerifyPassword(t *testing.T) {
	password := secBytes(t, []byte("open sesame"))
	salt := secBytes(t, []byte("sesame salt"))

	expected, err := DeriveKey(password, salt, 32, PBKDF2SHA256, 1000)
	require.NoError(t, err)
	t.Cleanup(expected.Destroy)

	ok, err := VerifyPassword(password, salt, expected, PBKDF2SHA256, 1000)
	require.NoError(t, err)
	assert.True(t, ok)

	wrong := secBytes(t, []byte("open barley"))
	ok, err = VerifyPassword(wrong, salt, expected, PBKDF2SHA256, 1000)
	require.NoError(t, err)
	assert.False(t, ok)

	t.Run("InvalidExpectedKey", func(t *testing.T) {
		empty := emptyBuf(t)
		_, err := VerifyPassword(password, salt, empty, PBKDF2SHA256, 1000)
		assert.Error(t, err)

		oversize := secBytes(t, make([]byte, 65))
		_, err = VerifyPassword(password, salt, oversize, PBKDF2SHA256, 1000)
		assert.Error(t, err)
	})
}

func TestNormalizePassphrase(t *testing.T) {
	assert.Equal(t, "file", NormalizePassphrase("ﬁle"))
}
