package security

import (
	"os"
	"testing"

	"github.com/neonfs/neonfs/secure"
)

func TestMain(m *testing.M) {
	if err := secure.InitDefault(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testKey returns a fresh 32-byte key in secure memory.
func testKey(t *testing.T) *secure.Bytes {
	t.Helper()
	key, err := secure.NewRandom(KeySize)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	return key
}

// testProvider builds a provider over a fresh random key.
func testProvider(t *testing.T, opts ...ProviderOption) *AESProvider {
	t.Helper()
	p, err := NewAESProvider(testKey(t), opts...)
	if err != nil {
		t.Fatalf("constructing provider: %v", err)
	}
	return p
}

// emptyBuf allocates an empty secure buffer and registers cleanup.
func emptyBuf(t *testing.T) *secure.Bytes {
	t.Helper()
	b, err := secure.NewBytes(0)
	if err != nil {
		t.Fatalf("allocating buffer: %v", err)
	}
	t.Cleanup(b.Destroy)
	return b
}

// secBytes copies b into a secure buffer and registers cleanup.
func secBytes(t *testing.T, b []byte) *secure.Bytes {
	t.Helper()
	s, err := secure.NewBytesFrom(b)
	if err != nil {
		t.Fatalf("allocating buffer: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}
