// Package memory provides a thread-safe in-memory implementation of
// storage.StorageProvider. Suitable for testing and single-process demos.
package memory

import (
	"fmt"
	"sync"

	"github.com/neonfs/neonfs/storage"
)

// Store holds the container blocks in process memory with the same
// geometry, padding and bounds contract as the file-backed BlockStorage.
type Store struct {
	cfg storage.Config

	mu     sync.RWMutex
	blocks [][]byte
}

var _ storage.StorageProvider = (*Store)(nil)

// NewStore creates an in-memory container with the given geometry.
func NewStore(cfg storage.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:    cfg,
		blocks: make([][]byte, cfg.BlockCount()),
	}, nil
}

func (s *Store) ReadBlock(blockID uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blockID >= s.cfg.BlockCount() {
		return nil, &storage.Error{Code: storage.CodeInvalidArgument, Message: fmt.Sprintf("invalid block ID %d", blockID)}
	}
	data := make([]byte, s.cfg.BlockSize)
	copy(data, s.blocks[blockID])
	return data, nil
}

func (s *Store) WriteBlock(blockID uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blockID >= s.cfg.BlockCount() {
		return &storage.Error{Code: storage.CodeInvalidArgument, Message: fmt.Sprintf("invalid block ID %d", blockID)}
	}
	if uint64(len(data)) > s.cfg.BlockSize {
		return &storage.Error{Code: storage.CodeIO, Message: fmt.Sprintf("data size %d exceeds block size %d", len(data), s.cfg.BlockSize)}
	}
	block := make([]byte, s.cfg.BlockSize)
	copy(block, data)
	s.blocks[blockID] = block
	return nil
}

func (s *Store) BlockCount() uint64 {
	return s.cfg.BlockCount()
}

func (s *Store) BlockSize() uint64 {
	return s.cfg.BlockSize
}
