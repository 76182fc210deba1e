package security

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonfs/neonfs/internal/util"
)

func testFactory(t *testing.T) func() (*GCMContext, error) {
	t.Helper()
	key, err := util.RandomBytes(KeySize)
	require.NoError(t, err)
	return func() (*GCMContext, error) {
		return NewGCMContext(key)
	}
}

func TestNewCtxPool_Validation(t *testing.T) {
	_, err := NewCtxPool(0, testFactory(t))
	assert.Error(t, err)

	_, err = NewCtxPool(3, nil)
	assert.Error(t, err)
}

func TestCtxPool_LazyConstruction(t *testing.T) {
	var built atomic.Int32
	key, err := util.RandomBytes(KeySize)
	require.NoError(t, err)

	p, err := NewCtxPool(3, func() (*GCMContext, error) {
		built.Add(1)
		return NewGCMContext(key)
	})
	require.NoError(t, err)

	// Nothing is constructed until the first acquire.
	assert.Equal(t, int32(0), built.Load())
	assert.Equal(t, 0, p.Available())

	h, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, int32(1), built.Load())
	assert.NotNil(t, h.Ctx())

	// A fresh context goes straight to the caller, not the idle stack.
	assert.Equal(t, 0, p.Available())
	h.Release()
	assert.Equal(t, 1, p.Available())

	// The idle context circulates instead of a second construction.
	h2, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, int32(1), built.Load())
	h2.Release()
}

func TestCtxPool_HandleReleaseIdempotent(t *testing.T) {
	p, err := NewCtxPool(2, testFactory(t))
	require.NoError(t, err)

	h, err := p.Acquire()
	require.NoError(t, err)
	h.Release()
	h.Release()
	assert.Nil(t, h.Ctx())
	assert.Equal(t, 1, p.Available())

	var empty *Handle
	empty.Release() // inert
}

func TestCtxPool_BlocksAtCapacity(t *testing.T) {
	p, err := NewCtxPool(3, testFactory(t))
	require.NoError(t, err)

	handles := make([]*Handle, 3)
	for i := range handles {
		handles[i], err = p.Acquire()
		require.NoError(t, err)
	}

	acquired := make(chan *Handle, 1)
	go func() {
		h, err := p.Acquire()
		if err != nil {
			return
		}
		acquired <- h
	}()

	select {
	case <-acquired:
		t.Fatal("fourth acquire returned while pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	handles[0].Release()

	select {
	case h := <-acquired:
		require.NotNil(t, h.Ctx())
		h.Release()
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after a release")
	}

	handles[1].Release()
	handles[2].Release()
	assert.Equal(t, 3, p.Available())
}

func TestCtxPool_NeverExceedsMax(t *testing.T) {
	const max = 4
	p, err := NewCtxPool(max, testFactory(t))
	require.NoError(t, err)

	var leased atomic.Int32
	var peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, err := p.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				n := leased.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				leased.Add(-1)
				h.Release()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(max))
	assert.LessOrEqual(t, p.Available(), max)
}

func TestCtxPool_FactoryFailureFreesSlot(t *testing.T) {
	fail := true
	key, err := util.RandomBytes(KeySize)
	require.NoError(t, err)

	p, err := NewCtxPool(1, func() (*GCMContext, error) {
		if fail {
			return NewGCMContext(key[:16]) // wrong size
		}
		return NewGCMContext(key)
	})
	require.NoError(t, err)

	_, err = p.Acquire()
	require.Error(t, err)

	// The failed construction returned its capacity slot.
	fail = false
	h, err := p.Acquire()
	require.NoError(t, err)
	h.Release()
}
