package secure

import (
	"crypto/rand"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/neonfs/neonfs/internal/util"
)

// Bytes is a resizable byte buffer backed by the secure heap. Its memory is
// locked against swapping and zeroed when the buffer is destroyed or when
// it is reallocated during growth. A Bytes is not safe for concurrent use;
// the heap accounting underneath it is.
//
// The zero value is not usable; allocate with NewBytes, NewBytesFrom or
// NewRandom, and call Destroy when done.
type Bytes struct {
	buf      *memguard.LockedBuffer
	n        int
	reserved int64
}

// NewBytes allocates a buffer of length n from the secure heap. The
// contents are zeroed.
func NewBytes(n int) (*Bytes, error) {
	if n < 0 {
		return nil, fmt.Errorf("secure buffer length must be non-negative, got %d", n)
	}
	reserved, err := reserve(n)
	if err != nil {
		return nil, err
	}
	return &Bytes{
		buf:      memguard.NewBuffer(int(reserved)),
		n:        n,
		reserved: reserved,
	}, nil
}

// NewBytesFrom allocates a secure buffer holding a copy of src. The source
// slice is not wiped; callers owning sensitive source data should wipe it
// themselves.
func NewBytesFrom(src []byte) (*Bytes, error) {
	b, err := NewBytes(len(src))
	if err != nil {
		return nil, err
	}
	copy(b.Data(), src)
	return b, nil
}

// NewRandom allocates a secure buffer of length n filled from the
// cryptographic random source.
func NewRandom(n int) (*Bytes, error) {
	b, err := NewBytes(n)
	if err != nil {
		return nil, err
	}
	if _, err := rand.Read(b.Data()); err != nil {
		b.Destroy()
		return nil, fmt.Errorf("filling secure buffer: %w", err)
	}
	return b, nil
}

// Data returns the buffer's live contents. The slice aliases secure memory
// and is invalidated by Resize, Append and Destroy. Returns nil after
// Destroy.
func (b *Bytes) Data() []byte {
	if b.buf == nil {
		return nil
	}
	return b.buf.Bytes()[:b.n]
}

// Len returns the logical length of the buffer, 0 after Destroy.
func (b *Bytes) Len() int {
	if b.buf == nil {
		return 0
	}
	return b.n
}

// Resize changes the logical length to n. Shrinking wipes the abandoned
// tail in place; growth beyond the current reservation moves the contents
// into a fresh locked buffer and destroys the old one.
func (b *Bytes) Resize(n int) error {
	if b.buf == nil {
		return fmt.Errorf("resize of destroyed secure buffer")
	}
	if n < 0 {
		return fmt.Errorf("secure buffer length must be non-negative, got %d", n)
	}
	if int64(n) <= b.reserved {
		if n < b.n {
			util.WipeBytes(b.buf.Bytes()[n:b.n])
		}
		b.n = n
		return nil
	}
	reserved, err := reserve(n)
	if err != nil {
		return err
	}
	nb := memguard.NewBuffer(int(reserved))
	copy(nb.Bytes(), b.buf.Bytes()[:b.n])
	b.buf.Destroy()
	unreserve(b.reserved)
	b.buf = nb
	b.reserved = reserved
	b.n = n
	return nil
}

// Append extends the buffer with a copy of p.
func (b *Bytes) Append(p []byte) error {
	old := b.n
	if err := b.Resize(b.n + len(p)); err != nil {
		return err
	}
	copy(b.buf.Bytes()[old:], p)
	return nil
}

// Clone returns an independent secure copy of the buffer.
func (b *Bytes) Clone() (*Bytes, error) {
	if b.buf == nil {
		return nil, fmt.Errorf("clone of destroyed secure buffer")
	}
	return NewBytesFrom(b.Data())
}

// Equal compares two buffers in constant time.
func (b *Bytes) Equal(o *Bytes) bool {
	if b == nil || o == nil || b.buf == nil || o.buf == nil {
		return false
	}
	return util.ConstantTimeEqual(b.Data(), o.Data())
}

// Wipe zeroes the buffer contents without releasing the allocation.
func (b *Bytes) Wipe() {
	if b.buf != nil {
		util.WipeBytes(b.buf.Bytes())
	}
}

// Destroy zeroes the backing memory and returns the allocation to the
// heap. Safe to call more than once.
func (b *Bytes) Destroy() {
	if b.buf == nil {
		return
	}
	b.buf.Destroy()
	b.buf = nil
	unreserve(b.reserved)
	b.reserved = 0
	b.n = 0
}
