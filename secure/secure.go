// Package secure provides a process-wide secure heap for sensitive byte
// buffers. Allocations are memory-locked, excluded from core dumps where the
// platform allows, and zeroed before their memory is returned. The heap is
// initialized once at startup with a fixed capacity; every live buffer is
// accounted against that capacity until it is destroyed.
package secure

import (
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

const (
	// DefaultCapacity is the default secure heap size (64 MiB).
	DefaultCapacity = 64 << 20
	// DefaultGranularity is the default minimum allocation quantum.
	DefaultGranularity = 64
)

var (
	ErrNotInitialized     = errors.New("secure heap is not initialized")
	ErrAlreadyInitialized = errors.New("secure heap is already initialized")
	ErrOutOfMemory        = errors.New("secure heap exhausted")
	ErrOutstanding        = errors.New("secure heap has outstanding allocations")
)

var heap struct {
	mu          sync.Mutex
	initialized bool
	capacity    int64
	granularity int64
	inUse       int64
	buffers     int
}

// Init initializes the secure heap with the given capacity in bytes and
// minimum allocation granularity. It must be called exactly once before any
// buffer is allocated; a second call returns ErrAlreadyInitialized.
func Init(capacity int64, granularity int) error {
	if capacity <= 0 {
		return fmt.Errorf("secure heap capacity must be positive, got %d", capacity)
	}
	if granularity <= 0 {
		return fmt.Errorf("secure heap granularity must be positive, got %d", granularity)
	}
	heap.mu.Lock()
	defer heap.mu.Unlock()
	if heap.initialized {
		return ErrAlreadyInitialized
	}
	heap.initialized = true
	heap.capacity = capacity
	heap.granularity = int64(granularity)
	heap.inUse = 0
	heap.buffers = 0
	return nil
}

// InitDefault initializes the secure heap with DefaultCapacity and
// DefaultGranularity.
func InitDefault() error {
	return Init(DefaultCapacity, DefaultGranularity)
}

// Shutdown tears down the secure heap. It fails with ErrOutstanding while
// any Bytes allocation is still live, and with ErrNotInitialized if the
// heap is not up (including a second Shutdown).
func Shutdown() error {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	if !heap.initialized {
		return ErrNotInitialized
	}
	if heap.buffers > 0 {
		return fmt.Errorf("%w: %d buffers (%d bytes) still live", ErrOutstanding, heap.buffers, heap.inUse)
	}
	heap.initialized = false
	memguard.Purge()
	return nil
}

// Capacity returns the configured heap capacity, or 0 if uninitialized.
func Capacity() int64 {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	if !heap.initialized {
		return 0
	}
	return heap.capacity
}

// InUse returns the number of bytes currently reserved from the heap.
func InUse() int64 {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	return heap.inUse
}

// Outstanding returns the number of live Bytes buffers.
func Outstanding() int {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	return heap.buffers
}

// reserve rounds n up to the allocation granularity and charges it against
// the heap, returning the rounded reservation.
func reserve(n int) (int64, error) {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	if !heap.initialized {
		return 0, ErrNotInitialized
	}
	rounded := roundUp(int64(n), heap.granularity)
	if heap.inUse+rounded > heap.capacity {
		return 0, fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrOutOfMemory, rounded, heap.inUse, heap.capacity)
	}
	heap.inUse += rounded
	heap.buffers++
	return rounded, nil
}

func unreserve(rounded int64) {
	heap.mu.Lock()
	defer heap.mu.Unlock()
	heap.inUse -= rounded
	heap.buffers--
}

func roundUp(n, quantum int64) int64 {
	if n == 0 {
		return quantum
	}
	return (n + quantum - 1) / quantum * quantum
}
