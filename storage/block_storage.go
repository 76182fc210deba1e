package storage

import (
	"fmt"
	"os"
	"sync"
)

// BlockStorage is a container file partitioned into equally sized blocks.
// A single stream mutex serialises every operation that touches the file
// handle, so operations on one instance observe a total order; callers may
// invoke them from any number of goroutines.
type BlockStorage struct {
	path string
	cfg  Config

	mu      sync.Mutex
	f       *os.File
	mounted bool
}

var _ StorageProvider = (*BlockStorage)(nil)

// Create writes a fresh container file of exactly BlockSize×BlockCount
// zero bytes at path. It uses its own short-lived handle and does not
// contend with any mounted instance.
func Create(path string, cfg Config) error {
	if path == "" {
		return newError(CodeInvalidArgument, "storage path cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return wrapError(CodeIO, "failed to create storage file", err)
	}
	if err := f.Truncate(int64(cfg.TotalSize)); err != nil {
		f.Close()
		os.Remove(path)
		return wrapError(CodeIO, "failed to size storage file", err)
	}
	if err := f.Close(); err != nil {
		return wrapError(CodeIO, "failed to close storage file", err)
	}
	return nil
}

// NewBlockStorage returns an unmounted instance over path with the given
// geometry. The geometry must be supplied out-of-band at every mount; the
// container file itself is headerless. A total size that is not a whole
// multiple of the block size is not rejected here: Mount fails on the
// length mismatch against any correctly created container.
func NewBlockStorage(path string, cfg Config) (*BlockStorage, error) {
	if path == "" {
		return nil, newError(CodeInvalidArgument, "storage path cannot be empty")
	}
	if cfg.BlockSize == 0 {
		return nil, newError(CodeInvalidBlockSize, "block size must be positive")
	}
	if cfg.TotalSize == 0 {
		return nil, newError(CodeIO, "total size must be positive")
	}
	return &BlockStorage{path: path, cfg: cfg}, nil
}

// Mount opens the container file read-write and verifies its length
// matches the declared geometry. On any failure the instance is left
// unmounted and the file untouched.
func (s *BlockStorage) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return newError(CodeState, "storage is already mounted")
	}

	st, err := os.Stat(s.path)
	if err != nil {
		return wrapError(CodeNotFound, fmt.Sprintf("storage file does not exist: %s", s.path), err)
	}
	if !st.Mode().IsRegular() {
		return newError(CodeNotFound, fmt.Sprintf("storage path is not a regular file: %s", s.path))
	}

	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return wrapError(CodeIO, fmt.Sprintf("failed to open storage file: %s", s.path), err)
	}
	want := int64(s.cfg.TotalSize)
	if st.Size() != want {
		f.Close()
		return newError(CodeSizeMismatch,
			fmt.Sprintf("storage file length %d does not match geometry %d", st.Size(), want))
	}

	s.f = f
	s.mounted = true
	return nil
}

// Unmount closes the file handle. Durability is not implied; call Flush
// first if required.
func (s *BlockStorage) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return newError(CodeState, "storage is not mounted")
	}
	if err := s.f.Close(); err != nil {
		return wrapError(CodeIO, "failed to close storage file", err)
	}
	s.f = nil
	s.mounted = false
	return nil
}

// IsMounted reports whether the container file is open.
func (s *BlockStorage) IsMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// ReadBlock returns exactly BlockSize bytes from block blockID.
func (s *BlockStorage) ReadBlock(blockID uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return nil, newError(CodeState, "storage is not mounted")
	}
	if blockID >= s.cfg.BlockCount() {
		return nil, newError(CodeInvalidArgument, fmt.Sprintf("invalid block ID %d", blockID))
	}

	data := make([]byte, s.cfg.BlockSize)
	offset := int64(blockID * s.cfg.BlockSize)
	n, err := s.f.ReadAt(data, offset)
	if err != nil || uint64(n) != s.cfg.BlockSize {
		return nil, wrapError(CodeNotFound, "incomplete block read", err)
	}
	return data, nil
}

// WriteBlock writes data into block blockID. Data shorter than BlockSize
// is zero-padded on the right; longer data is rejected.
func (s *BlockStorage) WriteBlock(blockID uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return newError(CodeState, "storage is not mounted")
	}
	if blockID >= s.cfg.BlockCount() {
		return newError(CodeInvalidArgument, fmt.Sprintf("invalid block ID %d", blockID))
	}
	if uint64(len(data)) > s.cfg.BlockSize {
		return newError(CodeIO, fmt.Sprintf("data size %d exceeds block size %d", len(data), s.cfg.BlockSize))
	}

	block := data
	if uint64(len(data)) < s.cfg.BlockSize {
		block = make([]byte, s.cfg.BlockSize)
		copy(block, data)
	}

	offset := int64(blockID * s.cfg.BlockSize)
	if _, err := s.f.WriteAt(block, offset); err != nil {
		return wrapError(CodeSizeMismatch, "failed to write block: possible disk full", err)
	}
	return nil
}

// Flush issues an OS-level flush on the container file.
func (s *BlockStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return newError(CodeState, "storage is not mounted")
	}
	if err := s.f.Sync(); err != nil {
		return wrapError(CodeIO, "failed to flush storage file", err)
	}
	return nil
}

// Close unmounts the instance if mounted. It does not flush.
func (s *BlockStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.mounted = false
	if err != nil {
		return wrapError(CodeIO, "failed to close storage file", err)
	}
	return nil
}

// BlockCount returns the number of block slots the container exposes.
func (s *BlockStorage) BlockCount() uint64 {
	return s.cfg.BlockCount()
}

// BlockSize returns the size of each block in bytes.
func (s *BlockStorage) BlockSize() uint64 {
	return s.cfg.BlockSize
}

// Path returns the container file path.
func (s *BlockStorage) Path() string {
	return s.path
}
